package server

import (
	"github.com/gin-gonic/gin"

	"document-chat/internal/auth"
)

// NewRouter builds the gin engine with all application routes registered.
func NewRouter(h *Handler, authService *auth.Service) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), TrackID())

	router.GET("/health", h.Health)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/token", h.Token)
	}

	upload := router.Group("/upload", RequireAuth(authService))
	{
		upload.POST("/document", h.Upload)
	}

	chat := router.Group("/chat", RequireAuth(authService))
	{
		chat.POST("", h.Chat)
		chat.GET("/conversation/:id", h.Conversation)
		chat.GET("/conversations", h.Conversations)
	}

	return router
}
