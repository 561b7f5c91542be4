package collaborator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/mnemora-ai/mnemora/internal/types"
)

const defaultOllamaBaseURL = "http://localhost:11434"

func newOllamaClient(baseURL string) (*api.Client, error) {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", baseURL, err)
	}
	return api.NewClient(parsed, http.DefaultClient), nil
}

type ollamaGenerator struct {
	client *api.Client
	model  string
	schema json.RawMessage
}

func (g *ollamaGenerator) Summarize(ctx context.Context, req *types.SummarizeRequest) (*types.SummaryDraft, error) {
	stream := false
	var sb strings.Builder
	err := g.client.Chat(ctx, &api.ChatRequest{
		Model: g.model,
		Messages: []api.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Instruction},
		},
		Format: g.schema,
		Stream: &stream,
	}, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}
	return parseDraft(sb.String())
}

type ollamaEmbedder struct {
	client *api.Client
	model  string
	dims   int
}

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *ollamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embed failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed response has %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	vectors := make([][]float32, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		if e.dims > 0 && len(embedding) != e.dims {
			return nil, fmt.Errorf("embedding model %s returned %d dimensions, expected %d",
				e.model, len(embedding), e.dims)
		}
		vectors[i] = embedding
	}
	return vectors, nil
}

func (e *ollamaEmbedder) Dimensions() int { return e.dims }
