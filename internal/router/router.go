// Package router assembles the gin engine: middleware chain, CORS policy,
// and the versioned route table.
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mnemora-ai/mnemora/internal/config"
	"github.com/mnemora-ai/mnemora/internal/handler"
	"github.com/mnemora-ai/mnemora/internal/middleware"
)

// Handlers groups the route handlers wired by the container.
type Handlers struct {
	Interaction *handler.InteractionHandler
	Retrieval   *handler.RetrievalHandler
	Concept     *handler.ConceptHandler
	Admin       *handler.AdminHandler
	Health      *handler.HealthHandler
}

// New builds the HTTP engine with all routes registered.
func New(cfg *config.Config, h *Handlers) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.AccessLog())
	if cfg.Tracing.Enabled {
		engine.Use(middleware.Tracing())
	}

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSAllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, middleware.RequestIDHeader)
	corsConfig.MaxAge = 12 * time.Hour
	engine.Use(cors.New(corsConfig))

	engine.GET("/health", h.Health.Check)

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/users", h.Interaction.EnsureUser)
		v1.POST("/projects", h.Interaction.EnsureProject)
		v1.GET("/projects", h.Interaction.ListProjects)

		v1.POST("/interactions", h.Interaction.Store)
		v1.GET("/interactions", h.Interaction.List)
		v1.POST("/interactions/:id/concepts", h.Interaction.LinkConcepts)
		v1.PUT("/interactions/:id/embedding", h.Interaction.BackfillEmbedding)

		v1.GET("/context", h.Retrieval.ContextFor)
		v1.POST("/search/semantic", h.Retrieval.SemanticSearch)
		v1.POST("/search/hybrid", h.Retrieval.HybridSearch)

		v1.GET("/concepts/trending", h.Concept.Trending)
		v1.GET("/concepts/search", h.Concept.Search)
		v1.POST("/concepts/relations", h.Concept.Relate)

		admin := v1.Group("/admin")
		{
			admin.POST("/calendar/ensure", h.Admin.EnsureCalendar)
			admin.POST("/summaries/trigger", h.Admin.TriggerSummaries)
			admin.POST("/concepts/recount", h.Admin.RecountConcepts)
		}
	}

	return engine
}
