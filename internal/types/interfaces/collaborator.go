package interfaces

import (
	"context"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// TextGenerator is the external text-generation collaborator used by the
// summarizer. Failures are wrapped as CollaboratorFailure and retried on the
// next scheduled pass.
type TextGenerator interface {
	// Summarize produces summary prose and key topics from a rendered prompt.
	Summarize(ctx context.Context, req *types.SummarizeRequest) (*types.SummaryDraft, error)
}

// Embedder is the external embedding collaborator.
type Embedder interface {
	// Embed vectorizes a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch vectorizes several texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed embedding vector length.
	Dimensions() int
}
