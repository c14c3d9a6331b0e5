package ws

import (
	"context"
	"encoding/json"

	"github.com/playmatatu/billiards/internal/game"
	"github.com/redis/go-redis/v9"
)

var rdbClient *redis.Client

func SetRedisClient(r *redis.Client) {
	rdbClient = r
}

// StartSessionEventSubscriber listens on the session_events channel and
// carries out close requests for sessions that live on this instance.
func StartSessionEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		logger().Info("redis client not set; session event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, game.SessionEventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		logger().Info("session_events subscriber started")
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handleSessionCommand(game.Manager, []byte(msg.Payload))
			}
		}
	}()
}

// handleSessionCommand applies one message from session_events. Messages
// this instance published, and sessions it does not own, are ignored.
func handleSessionCommand(gm *game.GameManager, payload []byte) bool {
	var cmd game.SessionCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		logger().Warn("invalid session event payload", "err", err)
		return false
	}
	if gm == nil || cmd.Origin == gm.InstanceID() {
		return false
	}

	switch cmd.Type {
	case game.CommandCloseSession:
		if !gm.HasSession(cmd.Token) {
			return false
		}
		reason := cmd.Reason
		if reason == "" {
			reason = "remote"
		}
		if err := gm.Close(cmd.Token, reason); err != nil {
			logger().Warn("remote close failed", "session", cmd.Token, "err", err)
			return false
		}
		logger().Info("closed session on request", "session", cmd.Token, "from", cmd.Origin)
		return true

	default:
		logger().Debug("unknown session event", "type", cmd.Type)
		return false
	}
}
