package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/game"
	"github.com/playmatatu/billiards/internal/store"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status. The database is pinged; a
// failed ping reports 503 so load balancers drop the instance.
func HealthCheck(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		overall, dbStatus := "ok", "ok"
		status := http.StatusOK
		if st != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := st.DB().PingContext(ctx); err != nil {
				overall, dbStatus = "degraded", "unreachable"
				status = http.StatusServiceUnavailable
			}
		}

		active := 0
		if game.Manager != nil {
			active = game.Manager.ActiveCount()
		}

		c.JSON(status, gin.H{
			"status":          overall,
			"service":         "billiards-api",
			"version":         version,
			"uptime":          time.Since(startTime).String(),
			"database":        dbStatus,
			"active_sessions": active,
		})
	}
}
