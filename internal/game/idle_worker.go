package game

import (
	"context"
	"fmt"
	"time"

	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/logging"
	"github.com/redis/go-redis/v9"
)

// StartIdleWorker closes sessions whose idle deadline in the session_idle
// sorted set has passed. Every instance runs one; ZREM decides which
// instance handles a member, and sessions owned elsewhere are closed through
// a request on session_events.
func StartIdleWorker(ctx context.Context, rdb *redis.Client, cfg *config.Config) {
	logger := logging.For("idle")
	if rdb == nil || cfg == nil {
		logger.Info("redis or config missing; idle worker not started")
		return
	}

	interval := time.Duration(cfg.IdleWorkerPollInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}

	logger.Info("idle worker started", "poll", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("idle worker stopping")
				return
			case <-ticker.C:
				n, err := reapIdleSessions(ctx, rdb, Manager, time.Now())
				if err != nil {
					logger.Error("failed to fetch idle sessions", "err", err)
				} else if n > 0 {
					logger.Info("closed idle sessions", "count", n)
				}
			}
		}
	}()
}

// reapIdleSessions closes every session whose deadline is at or before now.
func reapIdleSessions(ctx context.Context, rdb *redis.Client, gm *GameManager, now time.Time) (int, error) {
	members, err := rdb.ZRangeByScore(ctx, IdleSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, token := range members {
		// Attempt to remove (race-safe): only the instance that removes the
		// member acts on it.
		if removed, _ := rdb.ZRem(ctx, IdleSetKey, token).Result(); removed == 0 {
			continue
		}
		if gm == nil {
			continue
		}
		if err := gm.Close(token, "idle"); err != nil {
			gm.log.Warn("idle close failed", "session", token, "err", err)
			continue
		}
		closed++
	}
	return closed, nil
}
