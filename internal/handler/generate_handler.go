package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/advisorly/fincopy/internal/model"
	"github.com/advisorly/fincopy/internal/pkg/errcode"
	"github.com/advisorly/fincopy/internal/service"
)

type GenerateHandler struct {
	generation *service.GenerationService
	contexts   *service.ContextService
}

func NewGenerateHandler(generation *service.GenerationService, contexts *service.ContextService) *GenerateHandler {
	return &GenerateHandler{generation: generation, contexts: contexts}
}

type generateRequest struct {
	UserRequest    string `json:"user_request"`
	ContentType    string `json:"content_type"`
	AudienceType   string `json:"audience_type"`
	SessionID      string `json:"session_id"`
	CurrentContent string `json:"current_content"`
	IsRefinement   bool   `json:"is_refinement"`
}

// Generate is the single content endpoint. The core never persists; this
// layer records the exchange after a successful generation.
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result := h.generation.Generate(c.Request.Context(), model.GenerationRequest{
		UserRequest:    req.UserRequest,
		ContentType:    req.ContentType,
		AudienceType:   req.AudienceType,
		SessionID:      req.SessionID,
		CurrentContent: req.CurrentContent,
		IsRefinement:   req.IsRefinement,
	})
	if result.Status == model.GenerationStatusSuccess && req.SessionID != "" {
		h.contexts.RecordExchange(c.Request.Context(), req.SessionID, req.UserRequest, result.Content)
	}
	success(c, result)
}
