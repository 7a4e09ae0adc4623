package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/advisorly/fincopy/internal/model"
	"github.com/advisorly/fincopy/internal/pkg/errcode"
	"github.com/advisorly/fincopy/internal/service"
)

type LibraryHandler struct {
	library *service.LibraryService
}

func NewLibraryHandler(library *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

type libraryUpsertRequest struct {
	ID           string   `json:"id"`
	Corpus       string   `json:"corpus"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	ContentType  string   `json:"content_type"`
	AudienceType string   `json:"audience_type"`
	Tags         []string `json:"tags"`
}

func (h *LibraryHandler) Upsert(c *gin.Context) {
	var req libraryUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errcode.ErrInvalid, "invalid request")
		return
	}
	item, err := h.library.Upsert(c.Request.Context(), service.LibraryUpsertInput{
		ID:           req.ID,
		Corpus:       model.Corpus(req.Corpus),
		Title:        req.Title,
		Content:      req.Content,
		ContentType:  req.ContentType,
		AudienceType: req.AudienceType,
		Tags:         req.Tags,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, item)
}

func (h *LibraryHandler) Get(c *gin.Context) {
	item, err := h.library.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, item)
}

func (h *LibraryHandler) List(c *gin.Context) {
	var query struct {
		Corpus string `form:"corpus"`
		Offset uint   `form:"offset"`
		Limit  uint   `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		fail(c, errcode.ErrInvalid, "invalid request")
		return
	}
	items, err := h.library.List(c.Request.Context(), model.Corpus(query.Corpus), query.Offset, query.Limit)
	if err != nil {
		handleError(c, err)
		return
	}
	success(c, gin.H{"items": items})
}

func (h *LibraryHandler) Delete(c *gin.Context) {
	if err := h.library.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	success(c, nil)
}
