package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoopersona/internal/services"
	"github.com/yoockh/yoopersona/internal/utils"
)

// ProviderHandler is the operator surface over the provider config store.
// Routes behind RequireAdmin.
type ProviderHandler struct {
	svc services.ProviderConfigService
}

func NewProviderHandler(svc services.ProviderConfigService) *ProviderHandler {
	return &ProviderHandler{svc: svc}
}

func (h *ProviderHandler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"providers": rows})
}

type UpdateProviderRequest struct {
	APIKey   *string          `json:"api_key,omitempty"`
	IsActive *bool            `json:"is_active,omitempty"`
	Settings *json.RawMessage `json:"settings,omitempty"`
}

func (h *ProviderHandler) Update(c *gin.Context) {
	var req UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ProviderHandler.Update", "invalid request body", err))
		return
	}

	var settings json.RawMessage
	if req.Settings != nil {
		settings = *req.Settings
	}

	cfg, err := h.svc.Update(c.Request.Context(), c.Param("category"), req.APIKey, req.IsActive, settings)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}
