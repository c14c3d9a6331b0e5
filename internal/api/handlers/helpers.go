package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/game"
	"github.com/playmatatu/billiards/internal/logging"
)

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// respondError maps game and store errors to status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, game.ErrSessionClosed):
		c.JSON(http.StatusGone, gin.H{"error": "session closed"})
	case errors.Is(err, game.ErrUnknownTable), errors.Is(err, game.ErrInvalidMode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.For("api").Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
