package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vkrlab/briefbot/internal/pkg/logger"
)

// AdminTokenMiddleware guards the curator API with a shared token carried in
// the X-Admin-Token header. An empty configured token disables the API.
type AdminTokenMiddleware struct {
	log   *logger.Logger
	token string
}

func NewAdminTokenMiddleware(log *logger.Logger, token string) *AdminTokenMiddleware {
	return &AdminTokenMiddleware{log: log.With("Middleware", "AdminTokenMiddleware"), token: token}
}

func (am *AdminTokenMiddleware) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.token == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin api disabled"})
			return
		}
		got := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(am.token)) != 1 {
			am.log.Debug("Admin token rejected", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		c.Next()
	}
}
