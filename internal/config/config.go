package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for both the server and worker binaries.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	Collaborator CollaboratorConfig `mapstructure:"collaborator"`
	Calendar     CalendarConfig     `mapstructure:"calendar"`
	Summarizer   SummarizerConfig   `mapstructure:"summarizer"`
	Retriever    RetrieverConfig    `mapstructure:"retriever"`
	ConceptGraph ConceptGraphConfig `mapstructure:"concept_graph"`
	Neo4j        Neo4jConfig        `mapstructure:"neo4j"`
}

// ServerConfig controls the HTTP API process.
type ServerConfig struct {
	Host             string   `mapstructure:"host"`
	Port             int      `mapstructure:"port"`
	Mode             string   `mapstructure:"mode"`
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
}

// DatabaseConfig controls the Postgres connection.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the Postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig controls the Redis connection used by the task queue and period locks.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig controls log level, format, and rotation.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// TracingConfig controls OpenTelemetry trace export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// CollaboratorConfig controls the external text-generation and embedding services.
type CollaboratorConfig struct {
	Provider            string        `mapstructure:"provider"`
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	SummaryModel        string        `mapstructure:"summary_model"`
	EmbeddingModel      string        `mapstructure:"embedding_model"`
	EmbeddingDimensions int           `mapstructure:"embedding_dimensions"`
	RequestsPerSecond   float64       `mapstructure:"requests_per_second"`
	Burst               int           `mapstructure:"burst"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// CalendarConfig controls the materialized calendar horizon.
type CalendarConfig struct {
	HorizonYearsAhead int `mapstructure:"horizon_years_ahead"`
}

// SummarizerConfig controls eligibility thresholds and batch pass behavior.
type SummarizerConfig struct {
	WeeklyMinDaily     int           `mapstructure:"weekly_min_daily"`
	MonthlyMinFraction float64       `mapstructure:"monthly_min_fraction"`
	AnnualMinFraction  float64       `mapstructure:"annual_min_fraction"`
	MaxContextTokens   int           `mapstructure:"max_context_tokens"`
	PassConcurrency    int           `mapstructure:"pass_concurrency"`
	PassLimit          int           `mapstructure:"pass_limit"`
	GenerateTimeout    time.Duration `mapstructure:"generate_timeout"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
	DailyCron          string        `mapstructure:"daily_cron"`
	WeeklyCron         string        `mapstructure:"weekly_cron"`
	MonthlyCron        string        `mapstructure:"monthly_cron"`
	AnnualCron         string        `mapstructure:"annual_cron"`
	CalendarCron       string        `mapstructure:"calendar_cron"`
	RecountCron        string        `mapstructure:"recount_cron"`
	WorkerConcurrency  int           `mapstructure:"worker_concurrency"`
}

// RetrieverConfig controls retrieval defaults and hybrid fan-out limits.
type RetrieverConfig struct {
	DefaultTopK      int     `mapstructure:"default_top_k"`
	DefaultMinScore  float64 `mapstructure:"default_min_score"`
	SeedCount        int     `mapstructure:"seed_count"`
	SameDayLimit     int     `mapstructure:"same_day_limit"`
	TopicLimit       int     `mapstructure:"topic_limit"`
	TopicStrengthMin float64 `mapstructure:"topic_strength_min"`
}

// ConceptGraphConfig selects the concept graph backend.
type ConceptGraphConfig struct {
	Driver string `mapstructure:"driver"`
}

// Neo4jConfig controls the optional Neo4j concept graph backend.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Load reads configuration from config.yaml, .env, and MNEMORA_* environment
// variables, in increasing order of precedence.
func Load() (*Config, error) {
	// .env is optional; missing files are not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if path := os.Getenv("MNEMORA_CONFIG"); path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("MNEMORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("collaborator.api_key", "MNEMORA_COLLABORATOR_API_KEY", "OPENAI_API_KEY")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_allow_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mnemora")
	v.SetDefault("database.password", "mnemora")
	v.SetDefault("database.dbname", "mnemora")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "otlp")
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("collaborator.provider", "openai")
	v.SetDefault("collaborator.base_url", "")
	v.SetDefault("collaborator.summary_model", "gpt-4o-mini")
	v.SetDefault("collaborator.embedding_model", "text-embedding-3-small")
	v.SetDefault("collaborator.embedding_dimensions", 768)
	v.SetDefault("collaborator.requests_per_second", 2.0)
	v.SetDefault("collaborator.burst", 4)
	v.SetDefault("collaborator.timeout", "60s")

	v.SetDefault("calendar.horizon_years_ahead", 1)

	v.SetDefault("summarizer.weekly_min_daily", 5)
	v.SetDefault("summarizer.monthly_min_fraction", 1.0)
	v.SetDefault("summarizer.annual_min_fraction", 1.0)
	v.SetDefault("summarizer.max_context_tokens", 6000)
	v.SetDefault("summarizer.pass_concurrency", 4)
	v.SetDefault("summarizer.pass_limit", 200)
	v.SetDefault("summarizer.generate_timeout", "2m")
	v.SetDefault("summarizer.lock_ttl", "5m")
	v.SetDefault("summarizer.daily_cron", "0 2 * * *")
	v.SetDefault("summarizer.weekly_cron", "0 3 * * 1")
	v.SetDefault("summarizer.monthly_cron", "0 4 1 * *")
	v.SetDefault("summarizer.annual_cron", "0 5 1 1 *")
	v.SetDefault("summarizer.calendar_cron", "30 1 * * *")
	v.SetDefault("summarizer.recount_cron", "0 6 * * 0")
	v.SetDefault("summarizer.worker_concurrency", 8)

	v.SetDefault("retriever.default_top_k", 10)
	v.SetDefault("retriever.default_min_score", 0.7)
	v.SetDefault("retriever.seed_count", 5)
	v.SetDefault("retriever.same_day_limit", 3)
	v.SetDefault("retriever.topic_limit", 3)
	v.SetDefault("retriever.topic_strength_min", 0.5)

	v.SetDefault("concept_graph.driver", "postgres")

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
}

// Validate checks cross-field constraints that viper defaults cannot express.
func (c *Config) Validate() error {
	switch c.Collaborator.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("invalid collaborator provider %q (expected openai or ollama)", c.Collaborator.Provider)
	}
	switch c.ConceptGraph.Driver {
	case "postgres", "neo4j":
	default:
		return fmt.Errorf("invalid concept graph driver %q (expected postgres or neo4j)", c.ConceptGraph.Driver)
	}
	if c.Collaborator.EmbeddingDimensions <= 0 {
		return fmt.Errorf("collaborator.embedding_dimensions must be positive, got %d", c.Collaborator.EmbeddingDimensions)
	}
	if c.Summarizer.WeeklyMinDaily < 1 || c.Summarizer.WeeklyMinDaily > 7 {
		return fmt.Errorf("summarizer.weekly_min_daily must be within [1, 7], got %d", c.Summarizer.WeeklyMinDaily)
	}
	if c.Summarizer.MonthlyMinFraction <= 0 || c.Summarizer.MonthlyMinFraction > 1 {
		return fmt.Errorf("summarizer.monthly_min_fraction must be within (0, 1], got %f", c.Summarizer.MonthlyMinFraction)
	}
	if c.Summarizer.AnnualMinFraction <= 0 || c.Summarizer.AnnualMinFraction > 1 {
		return fmt.Errorf("summarizer.annual_min_fraction must be within (0, 1], got %f", c.Summarizer.AnnualMinFraction)
	}
	if c.Retriever.TopicStrengthMin < 0 || c.Retriever.TopicStrengthMin > 1 {
		return fmt.Errorf("retriever.topic_strength_min must be within [0, 1], got %f", c.Retriever.TopicStrengthMin)
	}
	return nil
}
