package api

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/api/handlers"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/game"
	"github.com/playmatatu/billiards/internal/logging"
	"github.com/playmatatu/billiards/internal/middleware"
	"github.com/playmatatu/billiards/internal/store"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, st *store.Store, catalog *game.Catalog, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if !cfg.IsProduction() {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		logging.For("api").Debug("no-cache headers enabled")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(st))
		v1.GET("/config", handlers.GetConfig(cfg))

		v1.GET("/tables", handlers.ListTables(catalog))
		v1.GET("/tables/:variant", handlers.GetTable(catalog))

		session := v1.Group("/game")
		{
			session.POST("", handlers.CreateGame(cfg))
			session.GET("/:token", handlers.GetGameState(st))
			session.POST("/:token/resume", handlers.ResumeGame(st, cfg))
			session.DELETE("/:token", handlers.PlayerAuth(cfg), handlers.CloseGame())
			session.GET("/:token/shots", handlers.ListShots(st))
			session.GET("/:token/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleGameWebSocket(cfg))
		}
	}
}
