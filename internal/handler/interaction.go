package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

// InteractionHandler serves the event store routes: users, projects,
// interactions, concept links, and embedding backfill.
type InteractionHandler struct {
	service interfaces.InteractionService
}

// NewInteractionHandler creates the interaction handler.
func NewInteractionHandler(service interfaces.InteractionService) *InteractionHandler {
	return &InteractionHandler{service: service}
}

type ensureUserRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name"`
}

// EnsureUser provisions a user.
// POST /api/v1/users
func (h *InteractionHandler) EnsureUser(c *gin.Context) {
	var req ensureUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid user body: %v", err)
		return
	}
	user, err := h.service.EnsureUser(c.Request.Context(), req.ID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

type ensureProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// EnsureProject provisions a project by name.
// POST /api/v1/projects
func (h *InteractionHandler) EnsureProject(c *gin.Context) {
	var req ensureProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid project body: %v", err)
		return
	}
	project, err := h.service.EnsureProject(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, project)
}

// ListProjects returns all projects.
// GET /api/v1/projects
func (h *InteractionHandler) ListProjects(c *gin.Context) {
	projects, err := h.service.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, projects)
}

type storeInteractionRequest struct {
	UserID           string    `json:"user_id" binding:"required"`
	Date             string    `json:"date" binding:"required"`
	OccurredAt       time.Time `json:"occurred_at"`
	InputText        string    `json:"input_text" binding:"required"`
	OutputText       string    `json:"output_text"`
	Intent           string    `json:"intent"`
	ComplexityScore  float64   `json:"complexity_score"`
	ModelUsed        string    `json:"model_used"`
	ProjectID        *string   `json:"project_id"`
	Embedding        []float32 `json:"embedding"`
	ComputeEmbedding bool      `json:"compute_embedding"`
}

// Store persists a completed exchange against its calendar day.
// POST /api/v1/interactions
func (h *InteractionHandler) Store(c *gin.Context) {
	var req storeInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid interaction body: %v", err)
		return
	}
	date, err := types.ParseDate(req.Date)
	if err != nil {
		respondInvalid(c, "invalid date %q: %v", req.Date, err)
		return
	}
	interaction, err := h.service.Store(c.Request.Context(), &types.StoreInteractionRequest{
		UserID:           req.UserID,
		Date:             date,
		OccurredAt:       req.OccurredAt,
		InputText:        req.InputText,
		OutputText:       req.OutputText,
		Intent:           req.Intent,
		ComplexityScore:  req.ComplexityScore,
		ModelUsed:        req.ModelUsed,
		ProjectID:        req.ProjectID,
		Embedding:        req.Embedding,
		ComputeEmbedding: req.ComputeEmbedding,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, interaction)
}

// List returns the interactions of one day (?date=) or a day range
// (?from=&to=), ordered by occurrence time.
// GET /api/v1/interactions
func (h *InteractionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if dateStr := c.Query("date"); dateStr != "" {
		date, err := types.ParseDate(dateStr)
		if err != nil {
			respondInvalid(c, "invalid date %q: %v", dateStr, err)
			return
		}
		interactions, err := h.service.ListByDay(ctx, date)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, interactions)
		return
	}

	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr == "" || toStr == "" {
		respondInvalid(c, "either date or both from and to are required")
		return
	}
	from, err := types.ParseDate(fromStr)
	if err != nil {
		respondInvalid(c, "invalid from %q: %v", fromStr, err)
		return
	}
	to, err := types.ParseDate(toStr)
	if err != nil {
		respondInvalid(c, "invalid to %q: %v", toStr, err)
		return
	}
	interactions, err := h.service.ListByRange(ctx, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, interactions)
}

type linkConceptsRequest struct {
	Concepts []types.ConceptMention `json:"concepts" binding:"required"`
}

// LinkConcepts attaches weighted concept mentions to an interaction.
// POST /api/v1/interactions/:id/concepts
func (h *InteractionHandler) LinkConcepts(c *gin.Context) {
	var req linkConceptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid concepts body: %v", err)
		return
	}
	concepts, err := h.service.LinkConcepts(c.Request.Context(), c.Param("id"), req.Concepts)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, concepts)
}

type backfillEmbeddingRequest struct {
	Embedding []float32 `json:"embedding" binding:"required"`
	Overwrite bool      `json:"overwrite"`
}

// BackfillEmbedding sets the embedding of an interaction stored without one.
// PUT /api/v1/interactions/:id/embedding
func (h *InteractionHandler) BackfillEmbedding(c *gin.Context) {
	var req backfillEmbeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid embedding body: %v", err)
		return
	}
	if err := h.service.BackfillEmbedding(c.Request.Context(), c.Param("id"), req.Embedding, req.Overwrite); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"interaction_id": c.Param("id")})
}
