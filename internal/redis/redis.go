package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/playmatatu/billiards/internal/logging"
	"github.com/redis/go-redis/v9"
)

// Connect establishes a connection to Redis. An empty URL means Redis is
// disabled and returns a nil client.
func Connect(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		logging.For("redis").Info("REDIS_URL not set; running single-instance without snapshots")
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logging.For("redis").Info("connected", "addr", opt.Addr, "db", opt.DB)
	return client, nil
}
