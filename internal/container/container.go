// Package container wires the dependency graph shared by the server and
// worker binaries through dig.
package container

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/neo4j/neo4j-go-driver/v6/neo4j"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	calendarpg "github.com/mnemora-ai/mnemora/internal/application/repository/calendar/postgres"
	conceptneo4j "github.com/mnemora-ai/mnemora/internal/application/repository/concept/neo4j"
	conceptpg "github.com/mnemora-ai/mnemora/internal/application/repository/concept/postgres"
	interactionpg "github.com/mnemora-ai/mnemora/internal/application/repository/interaction/postgres"
	projectpg "github.com/mnemora-ai/mnemora/internal/application/repository/project/postgres"
	summarypg "github.com/mnemora-ai/mnemora/internal/application/repository/summary/postgres"
	userpg "github.com/mnemora-ai/mnemora/internal/application/repository/user/postgres"
	calendarsvc "github.com/mnemora-ai/mnemora/internal/application/service/calendar"
	conceptsvc "github.com/mnemora-ai/mnemora/internal/application/service/concept"
	interactionsvc "github.com/mnemora-ai/mnemora/internal/application/service/interaction"
	retrieversvc "github.com/mnemora-ai/mnemora/internal/application/service/retriever"
	summarizersvc "github.com/mnemora-ai/mnemora/internal/application/service/summarizer"
	"github.com/mnemora-ai/mnemora/internal/collaborator"
	"github.com/mnemora-ai/mnemora/internal/config"
	"github.com/mnemora-ai/mnemora/internal/handler"
	"github.com/mnemora-ai/mnemora/internal/router"
	"github.com/mnemora-ai/mnemora/internal/tasks"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

// Build assembles the full dependency graph. Both binaries share one graph;
// dig only constructs what each entry point invokes.
func Build() (*dig.Container, error) {
	c := dig.New()
	providers := []interface{}{
		config.Load,
		collaboratorConfig,
		summarizerConfig,
		retrieverConfig,
		newDatabase,
		newRedisClient,
		newAsynqClient,
		tasks.NewRedisLocker,
		collaborator.New,
		calendarpg.NewCalendarRepository,
		interactionpg.NewInteractionRepository,
		userpg.NewUserRepository,
		projectpg.NewProjectRepository,
		summarypg.NewSummaryRepository,
		newConceptRepository,
		calendarsvc.NewCalendarService,
		interactionsvc.NewInteractionService,
		conceptsvc.NewConceptService,
		summarizersvc.NewSummaryService,
		retrieversvc.NewRetrieveService,
		handler.NewInteractionHandler,
		handler.NewRetrievalHandler,
		handler.NewConceptHandler,
		handler.NewAdminHandler,
		handler.NewHealthHandler,
		newHandlers,
		router.New,
		tasks.NewHandler,
		tasks.NewScheduler,
		tasks.NewWorkerServer,
		tasks.NewServeMux,
	}
	for _, provider := range providers {
		if err := c.Provide(provider); err != nil {
			return nil, fmt.Errorf("failed to provide dependency: %w", err)
		}
	}
	return c, nil
}

func collaboratorConfig(cfg *config.Config) *config.CollaboratorConfig { return &cfg.Collaborator }
func summarizerConfig(cfg *config.Config) *config.SummarizerConfig    { return &cfg.Summarizer }
func retrieverConfig(cfg *config.Config) *config.RetrieverConfig      { return &cfg.Retriever }

func newDatabase(cfg *config.Config) (*gorm.DB, error) {
	// TranslateError maps unique violations onto gorm.ErrDuplicatedKey, which
	// the repositories turn into Conflict.
	db, err := gorm.Open(pgdriver.Open(cfg.Database.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}
	return db, nil
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func newAsynqClient(cfg *config.Config) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func newConceptRepository(cfg *config.Config, db *gorm.DB) (interfaces.ConceptRepository, error) {
	switch cfg.ConceptGraph.Driver {
	case "", "postgres":
		return conceptpg.NewConceptRepository(db), nil
	case "neo4j":
		driver, err := neo4j.NewDriver(cfg.Neo4j.URI,
			neo4j.BasicAuth(cfg.Neo4j.Username, cfg.Neo4j.Password, ""))
		if err != nil {
			return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
		}
		return conceptneo4j.NewConceptRepository(driver), nil
	default:
		return nil, fmt.Errorf("unknown concept graph driver %q", cfg.ConceptGraph.Driver)
	}
}

func newHandlers(
	interactionHandler *handler.InteractionHandler,
	retrievalHandler *handler.RetrievalHandler,
	conceptHandler *handler.ConceptHandler,
	adminHandler *handler.AdminHandler,
	healthHandler *handler.HealthHandler,
) *router.Handlers {
	return &router.Handlers{
		Interaction: interactionHandler,
		Retrieval:   retrievalHandler,
		Concept:     conceptHandler,
		Admin:       adminHandler,
		Health:      healthHandler,
	}
}
