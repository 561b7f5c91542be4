// Package collaborator adapts external language model providers to the
// narrow text-generation and embedding interfaces the pipelines consume.
package collaborator

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/mnemora-ai/mnemora/internal/config"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

// New builds the configured provider pair. Both share one rate limiter
// because they draw on the same provider quota.
func New(cfg *config.CollaboratorConfig) (interfaces.TextGenerator, interfaces.Embedder, error) {
	schema, err := draftSchema()
	if err != nil {
		return nil, nil, err
	}

	var (
		generator interfaces.TextGenerator
		embedder  interfaces.Embedder
	)
	switch cfg.Provider {
	case "openai":
		client := newOpenAIClient(cfg)
		generator = &openAIGenerator{client: client, model: cfg.SummaryModel, schema: schema}
		embedder = &openAIEmbedder{client: client, model: cfg.EmbeddingModel, dims: cfg.EmbeddingDimensions}
	case "ollama":
		client, err := newOllamaClient(cfg.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		generator = &ollamaGenerator{client: client, model: cfg.SummaryModel, schema: schema}
		embedder = &ollamaEmbedder{client: client, model: cfg.EmbeddingModel, dims: cfg.EmbeddingDimensions}
	default:
		return nil, nil, fmt.Errorf("unsupported collaborator provider %q", cfg.Provider)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	limiter := rate.NewLimiter(limit, max(cfg.Burst, 1))

	generator = &rateLimitedGenerator{inner: generator, limiter: limiter, timeout: cfg.Timeout}
	embedder = &rateLimitedEmbedder{inner: embedder, limiter: limiter, timeout: cfg.Timeout}
	return generator, embedder, nil
}
