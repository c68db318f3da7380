// server/internal/api/middleware/guards.go
package middleware

import (
	"net/http"

	"farmwise-api-server/internal/repository"
	"farmwise-api-server/internal/session"

	"github.com/gin-gonic/gin"
)

// RequireDatabase rejects the request with 503 when MongoDB is not
// configured.
func RequireDatabase(repo repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if repo == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   true,
				"message": "Database not available",
			})
			return
		}
		c.Next()
	}
}

// LoadSession checks that the :sid route parameter names an open session and
// stores its id in the context under "session_id".
func LoadSession(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.Param("sid")
		if !store.Exists(sid) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":   true,
				"message": session.ErrSessionNotFound.Error(),
			})
			return
		}
		c.Set("session_id", sid)
		c.Next()
	}
}
