package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/ws"
)

// HandleGameWebSocket handles real-time session input and frames
func HandleGameWebSocket(cfg *config.Config) gin.HandlerFunc {
	return ws.HandleWebSocket(cfg)
}
