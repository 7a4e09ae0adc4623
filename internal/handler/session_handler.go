package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/advisorly/fincopy/internal/pkg/errcode"
	"github.com/advisorly/fincopy/internal/service"
)

type SessionHandler struct {
	contexts *service.ContextService
}

func NewSessionHandler(contexts *service.ContextService) *SessionHandler {
	return &SessionHandler{contexts: contexts}
}

type sessionCreateRequest struct {
	Title string `json:"title"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req sessionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errcode.ErrInvalid, "invalid request")
		return
	}
	session, err := h.contexts.CreateSession(c.Request.Context(), req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, session)
}

func (h *SessionHandler) Messages(c *gin.Context) {
	messages, err := h.contexts.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, gin.H{"messages": messages})
}

type attachDocumentRequest struct {
	Name          string `json:"name"`
	Summary       string `json:"summary"`
	TokenEstimate int    `json:"token_estimate"`
}

// AttachDocument stores a pre-summarized document against a session. Raw
// file extraction lives in the upload pipeline, not here.
func (h *SessionHandler) AttachDocument(c *gin.Context) {
	var req attachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errcode.ErrInvalid, "invalid request")
		return
	}
	doc, err := h.contexts.AttachDocument(c.Request.Context(), c.Param("id"), req.Name, req.Summary, req.TokenEstimate)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, doc)
}
