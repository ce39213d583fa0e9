package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoopersona/internal/services"
	"github.com/yoockh/yoopersona/internal/utils"
)

type InteractionHandler struct {
	svc services.InteractionService
}

func NewInteractionHandler(svc services.InteractionService) *InteractionHandler {
	return &InteractionHandler{svc: svc}
}

type CreateInteractionRequest struct {
	InputText string `json:"input_text"`
	InputRef  string `json:"input_ref"` // URL of a recorded prompt
}

type CreateInteractionResponse struct {
	InteractionID string `json:"interaction_id"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

func (h *InteractionHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InteractionHandler.Create", "invalid request body", err))
		return
	}

	rec, err := h.svc.Create(c.Request.Context(), userID, req.InputText, req.InputRef)
	if err != nil {
		writeError(c, err)
		return
	}

	// Orchestration continues in the background; clients poll or subscribe.
	c.JSON(http.StatusAccepted, CreateInteractionResponse{
		InteractionID: rec.ID,
		Status:        rec.Status,
		CreatedAt:     rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (h *InteractionHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	if rec.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "InteractionHandler.Get", "forbidden", nil))
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *InteractionHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.svc.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"interactions": rows})
}

func (h *InteractionHandler) Events(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if rec.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "InteractionHandler.Events", "forbidden", nil))
		return
	}

	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	events, err := h.svc.EventsByInteraction(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}
