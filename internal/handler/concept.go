package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

// ConceptHandler serves the concept graph routes.
type ConceptHandler struct {
	service interfaces.ConceptService
}

// NewConceptHandler creates the concept handler.
func NewConceptHandler(service interfaces.ConceptService) *ConceptHandler {
	return &ConceptHandler{service: service}
}

// Trending ranks the concepts active inside a trailing window.
// GET /api/v1/concepts/trending?window_days=&as_of=&limit=
func (h *ConceptHandler) Trending(c *gin.Context) {
	windowDays, err := intQuery(c, "window_days", 7)
	if err != nil {
		respondInvalid(c, "%v", err)
		return
	}
	limit, err := intQuery(c, "limit", 10)
	if err != nil {
		respondInvalid(c, "%v", err)
		return
	}
	asOf := time.Now().UTC()
	if asOfStr := c.Query("as_of"); asOfStr != "" {
		if asOf, err = types.ParseDate(asOfStr); err != nil {
			respondInvalid(c, "invalid as_of %q: %v", asOfStr, err)
			return
		}
	}
	concepts, err := h.service.Trending(c.Request.Context(), windowDays, asOf, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, concepts)
}

// Search performs keyword search over concept names and descriptions.
// GET /api/v1/concepts/search?q=&limit=
func (h *ConceptHandler) Search(c *gin.Context) {
	limit, err := intQuery(c, "limit", 10)
	if err != nil {
		respondInvalid(c, "%v", err)
		return
	}
	concepts, err := h.service.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, concepts)
}

type relateRequest struct {
	From     string  `json:"from" binding:"required"`
	To       string  `json:"to" binding:"required"`
	Relation string  `json:"relation" binding:"required"`
	Strength float64 `json:"strength"`
}

// Relate upserts a directed relation between two named concepts.
// POST /api/v1/concepts/relations
func (h *ConceptHandler) Relate(c *gin.Context) {
	var req relateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid relation body: %v", err)
		return
	}
	if err := h.service.Relate(c.Request.Context(), req.From, req.To, req.Relation, req.Strength); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"from": req.From, "to": req.To, "relation": req.Relation})
}

// intQuery parses an optional integer query parameter.
func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return value, nil
}
