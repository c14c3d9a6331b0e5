package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/auth"
	"github.com/playmatatu/billiards/internal/config"
)

// PlayerAuth requires a bearer player token issued for the session in the
// :token path parameter.
func PlayerAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if err := auth.VerifySession(cfg.JWTSecret, raw, c.Param("token")); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
