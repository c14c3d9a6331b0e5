package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/logging"
)

// allowedOrigins lists the browser origins the API answers. Development
// also accepts any localhost port.
func allowedOrigins(cfg *config.Config) []string {
	origins := []string{}
	if !cfg.IsProduction() {
		origins = append(origins, "http://localhost:5173", "http://127.0.0.1:5173")
	}
	for _, o := range strings.Split(cfg.FrontendURL, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" && !contains(origins, o) {
			origins = append(origins, o)
		}
	}
	return origins
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// originAllowed reports whether a browser origin may use the API.
func originAllowed(cfg *config.Config, origin string) bool {
	if !cfg.IsProduction() &&
		(strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
		return true
	}
	return contains(allowedOrigins(cfg), origin)
}

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	logger := logging.For("cors")
	origins := allowedOrigins(cfg)
	logger.Info("cors configured", "env", cfg.Environment, "origins", origins)

	corsConfig := cors.Config{
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			return originAllowed(cfg, origin)
		},
		MaxAge: 12 * time.Hour, // Cache preflight responses
	}

	return cors.New(corsConfig)
}

// WebSocketCORSCheck validates WebSocket upgrade origins
func WebSocketCORSCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only check for WebSocket upgrade requests
		if !strings.Contains(strings.ToLower(c.GetHeader("Connection")), "upgrade") ||
			strings.ToLower(c.GetHeader("Upgrade")) != "websocket" {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			// Non-browser clients send no Origin; the player token still applies.
			if cfg.IsProduction() {
				c.AbortWithStatusJSON(400, gin.H{"error": "WebSocket origin required"})
				return
			}
			c.Next()
			return
		}

		if !originAllowed(cfg, origin) {
			logging.For("cors").Warn("websocket origin rejected", "origin", origin)
			c.AbortWithStatusJSON(403, gin.H{"error": "WebSocket origin not allowed"})
			return
		}

		c.Next()
	}
}
