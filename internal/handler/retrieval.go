package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

// RetrievalHandler serves contextual recall and search. Search routes accept
// either a raw embedding or a text query that is vectorized server-side.
type RetrievalHandler struct {
	service  interfaces.RetrieveService
	embedder interfaces.Embedder
}

// NewRetrievalHandler creates the retrieval handler.
func NewRetrievalHandler(service interfaces.RetrieveService, embedder interfaces.Embedder) *RetrievalHandler {
	return &RetrievalHandler{service: service, embedder: embedder}
}

// ContextFor returns tier-resolved content for a date.
// GET /api/v1/context?date=&as_of=
func (h *RetrievalHandler) ContextFor(c *gin.Context) {
	dateStr := c.Query("date")
	if dateStr == "" {
		respondInvalid(c, "date is required")
		return
	}
	date, err := types.ParseDate(dateStr)
	if err != nil {
		respondInvalid(c, "invalid date %q: %v", dateStr, err)
		return
	}
	asOf := time.Now().UTC()
	if asOfStr := c.Query("as_of"); asOfStr != "" {
		if asOf, err = types.ParseDate(asOfStr); err != nil {
			respondInvalid(c, "invalid as_of %q: %v", asOfStr, err)
			return
		}
	}
	result, err := h.service.ContextFor(c.Request.Context(), date, asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

type semanticSearchRequest struct {
	Query     string    `json:"query"`
	Embedding []float32 `json:"embedding"`
	TopK      int       `json:"top_k"`
	MinScore  float64   `json:"min_score"`
}

// SemanticSearch queries all five embedding indexes and merges by score.
// POST /api/v1/search/semantic
func (h *RetrievalHandler) SemanticSearch(c *gin.Context) {
	var req semanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid search body: %v", err)
		return
	}
	embedding, err := h.resolveEmbedding(c.Request.Context(), req.Embedding, req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	hits, err := h.service.SemanticSearch(c.Request.Context(), embedding, req.TopK, req.MinScore)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, hits)
}

type hybridSearchRequest struct {
	Query     string    `json:"query"`
	Embedding []float32 `json:"embedding"`
	MinScore  float64   `json:"min_score"`
}

// HybridSearch finds semantic seeds and expands each with relational context.
// POST /api/v1/search/hybrid
func (h *RetrievalHandler) HybridSearch(c *gin.Context) {
	var req hybridSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid search body: %v", err)
		return
	}
	embedding, err := h.resolveEmbedding(c.Request.Context(), req.Embedding, req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	groups, err := h.service.HybridSearch(c.Request.Context(), embedding, req.MinScore)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, groups)
}

// resolveEmbedding returns the supplied embedding, or vectorizes the text
// query when none was given.
func (h *RetrievalHandler) resolveEmbedding(ctx context.Context, embedding []float32, query string) ([]float32, error) {
	if len(embedding) > 0 {
		return embedding, nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewInvalidArgument("either query or embedding is required")
	}
	vector, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.WrapCollaborator(err, "failed to embed search query")
	}
	return vector, nil
}
