package collaborator

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

// rateLimitedGenerator throttles outbound calls under a limiter shared with
// the embedder, so batch passes stay inside the provider quota. Each call
// also carries its own deadline.
type rateLimitedGenerator struct {
	inner   interfaces.TextGenerator
	limiter *rate.Limiter
	timeout time.Duration
}

func (g *rateLimitedGenerator) Summarize(ctx context.Context, req *types.SummarizeRequest) (*types.SummaryDraft, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.inner.Summarize(ctx, req)
}

type rateLimitedEmbedder struct {
	inner   interfaces.Embedder
	limiter *rate.Limiter
	timeout time.Duration
}

func (e *rateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.inner.Embed(ctx, text)
}

func (e *rateLimitedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.inner.EmbedBatch(ctx, texts)
}

func (e *rateLimitedEmbedder) Dimensions() int { return e.inner.Dimensions() }
