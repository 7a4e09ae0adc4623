package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Generate *GenerateHandler
	Library  *LibraryHandler
	Sessions *SessionHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/generate", deps.Generate.Generate)

	api.POST("/library", deps.Library.Upsert)
	api.GET("/library", deps.Library.List)
	api.GET("/library/:id", deps.Library.Get)
	api.DELETE("/library/:id", deps.Library.Delete)

	api.POST("/sessions", deps.Sessions.Create)
	api.GET("/sessions/:id/messages", deps.Sessions.Messages)
	api.POST("/sessions/:id/documents", deps.Sessions.AttachDocument)
}
