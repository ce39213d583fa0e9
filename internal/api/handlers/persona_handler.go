package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoopersona/internal/models"
	"github.com/yoockh/yoopersona/internal/services"
	"github.com/yoockh/yoopersona/internal/utils"
)

type PersonaHandler struct {
	svc services.PersonaService
}

func NewPersonaHandler(svc services.PersonaService) *PersonaHandler {
	return &PersonaHandler{svc: svc}
}

func (h *PersonaHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	p, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

type UpdatePersonaRequest struct {
	Name               *string `json:"name,omitempty"`
	CommunicationStyle *string `json:"communication_style,omitempty"`

	Warmth     *int `json:"warmth,omitempty"`
	Humor      *int `json:"humor,omitempty"`
	Formality  *int `json:"formality,omitempty"`
	Optimism   *int `json:"optimism,omitempty"`
	Empathy    *int `json:"empathy,omitempty"`
	Directness *int `json:"directness,omitempty"`
	Curiosity  *int `json:"curiosity,omitempty"`
	Nostalgia  *int `json:"nostalgia,omitempty"`

	Traits *[]string `json:"traits,omitempty"`

	AvatarID *string `json:"avatar_id,omitempty"`
	VoiceID  *string `json:"voice_id,omitempty"`
}

func (h *PersonaHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req UpdatePersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PersonaHandler.Update", "invalid request body", err))
		return
	}

	// Load existing (if not found => create new)
	existing, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		if utils.IsCode(err, utils.CodeNotFound) {
			existing = &models.Persona{
				UserID: userID,
				Warmth: 50, Humor: 50, Formality: 50, Optimism: 50,
				Empathy: 50, Directness: 50, Curiosity: 50, Nostalgia: 50,
			}
		} else {
			writeError(c, err)
			return
		}
	}

	// Apply partial updates
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.CommunicationStyle != nil {
		existing.CommunicationStyle = *req.CommunicationStyle
	}
	applyScalar(&existing.Warmth, req.Warmth)
	applyScalar(&existing.Humor, req.Humor)
	applyScalar(&existing.Formality, req.Formality)
	applyScalar(&existing.Optimism, req.Optimism)
	applyScalar(&existing.Empathy, req.Empathy)
	applyScalar(&existing.Directness, req.Directness)
	applyScalar(&existing.Curiosity, req.Curiosity)
	applyScalar(&existing.Nostalgia, req.Nostalgia)
	if req.Traits != nil {
		existing.Traits = *req.Traits
	}
	if req.AvatarID != nil {
		existing.AvatarID = *req.AvatarID
	}
	if req.VoiceID != nil {
		existing.VoiceID = *req.VoiceID
	}

	if err := h.svc.Upsert(c.Request.Context(), existing); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, existing)
}

// applyScalar clamps personality scalars into 0-100.
func applyScalar(dst *int, v *int) {
	if v == nil {
		return
	}
	n := *v
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	*dst = n
}

type AddStoryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
}

func (h *PersonaHandler) AddStory(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req AddStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PersonaHandler.AddStory", "invalid request body", err))
		return
	}

	row, err := h.svc.AddStory(c.Request.Context(), userID, req.Title, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, row)
}

func (h *PersonaHandler) ListStories(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.svc.ListStories(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stories": rows})
}
