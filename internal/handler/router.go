package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/readmate/readmate/internal/middleware"
)

type RouterDeps struct {
	Textbook     *TextbookHandler
	Sessions     *SessionHandler
	AI           *AIHandler
	Admin        *AdminHandler
	JWTSecret    []byte
	AIRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/textbook/chapters", deps.Textbook.ListChapters)
	api.GET("/textbook/chapters/:id", deps.Textbook.GetChapter)
	api.GET("/textbook/chapters/:id/toc", deps.Textbook.GetToc)
	api.GET("/textbook/languages", deps.Textbook.Languages)

	api.POST("/sessions", deps.Sessions.Create)
	api.GET("/sessions/:id", deps.Sessions.Get)
	api.GET("/sessions/:id/history", deps.Sessions.History)
	api.PUT("/sessions/:id/preferences", deps.Sessions.UpdatePreferences)

	aiGroup := api.Group("/ai")
	if deps.AIRateWindow > 0 {
		aiGroup.Use(middleware.RateLimit(deps.AIRateWindow))
	}
	aiGroup.POST("/query", deps.AI.Query)
	aiGroup.POST("/query/stream", deps.AI.QueryStream)
	aiGroup.POST("/validate", deps.AI.Validate)
	api.GET("/ai/queue/status", deps.AI.QueueStatus)

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.AdminAuth(deps.JWTSecret))
	adminGroup.POST("/index", deps.Admin.Reindex)
	adminGroup.POST("/sync", deps.Admin.Sync)
}
