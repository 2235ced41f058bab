package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"document-chat/internal/auth"
)

// identityKey is the gin context key holding the verified owner identity.
const identityKey = "username"

// TrackID tags every request with a UUID, echoed in the X-Track-ID header
// and attached to request logs.
func TrackID() gin.HandlerFunc {
	return func(c *gin.Context) {
		trackID := uuid.NewString()
		c.Header("X-Track-ID", trackID)
		c.Next()
		log.Debug().
			Str("track_id", trackID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("Request handled")
	}
}

// RequireAuth resolves the bearer token to the owner identity consumed by
// every protected handler.
func RequireAuth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: 401, Message: "missing bearer token"})
			return
		}

		username, err := authService.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: 401, Message: "invalid or expired token"})
			return
		}

		c.Set(identityKey, username)
		c.Next()
	}
}
