package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/game"
)

// GetConfig returns the values a client needs to pace and render a session
func GetConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tick_rate":             cfg.TickRate,
			"frame_broadcast_every": cfg.FrameBroadcastEvery,
			"session_idle_minutes":  cfg.SessionIdleMinutes,
			"player_token_hours":    cfg.PlayerTokenHours,
			"tables":                game.Variants,
			"modes":                 []game.GameMode{game.ModePractice, game.ModeTwoPlayer},
		})
	}
}
