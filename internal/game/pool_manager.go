package game

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/playmatatu/billiards/internal/models"
	"github.com/redis/go-redis/v9"
)

// Redis keys and channels shared by every instance.
const (
	IdleSetKey           = "session_idle"
	SessionEventsChannel = "session_events"
)

func snapshotKey(token string) string {
	return "session:" + token + ":snapshot"
}

// persistJob is a write the session loops hand off so a slow database or
// Redis never stalls a tick.
type persistJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (gm *GameManager) enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case <-gm.stopping:
		gm.log.Warn("persistence stopped, dropping job", "job", name)
		return
	default:
	}
	select {
	case gm.persist <- persistJob{name: name, fn: fn}:
	default:
		gm.log.Error("persistence queue full, dropping job", "job", name)
	}
}

// runPersistence executes queued writes in order until Shutdown, then
// drains what is left.
func (gm *GameManager) runPersistence() {
	defer gm.wg.Done()
	for {
		select {
		case job := <-gm.persist:
			gm.runJob(job)
		case <-gm.stopping:
			for {
				select {
				case job := <-gm.persist:
					gm.runJob(job)
				default:
					return
				}
			}
		}
	}
}

func (gm *GameManager) runJob(job persistJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := job.fn(ctx); err != nil {
		gm.log.Error("persistence job failed", "job", job.name, "err", err)
	}
}

// recordShot stores a fired shot.
func (gm *GameManager) recordShot(token string, variant TableVariant, info ShotInfo, at time.Time) {
	if gm.store == nil {
		return
	}
	shot := &models.Shot{
		SessionToken: token,
		ShotNumber:   info.Number,
		Player:       info.Player,
		Power:        info.Power,
		Angle:        info.Angle,
		TableVariant: string(variant),
		FiredAt:      at,
	}
	gm.enqueue("record_shot", func(ctx context.Context) error {
		return gm.store.RecordShot(ctx, shot)
	})
}

// completeShot fills in the outcome once the table settles.
func (gm *GameManager) completeShot(token string, out ShotOutcome, at time.Time) {
	if gm.store == nil {
		return
	}
	gm.enqueue("complete_shot", func(ctx context.Context) error {
		return gm.store.CompleteShot(ctx, token, out.Number, at, out.Pocketed, out.CueScratched, out.Ticks)
	})
}

func (gm *GameManager) updateStoredTable(token string, variant TableVariant, mode GameMode) {
	if gm.store == nil {
		return
	}
	gm.enqueue("update_table", func(ctx context.Context) error {
		return gm.store.UpdateSessionTable(ctx, token, string(variant), string(mode))
	})
}

func (gm *GameManager) markClosed(token string, at time.Time) {
	if gm.store == nil {
		return
	}
	gm.enqueue("close_session", func(ctx context.Context) error {
		return gm.store.CloseSession(ctx, token, at)
	})
}

// saveSnapshot keeps the last settled state in Redis so any instance can
// answer a state request for the session.
func (gm *GameManager) saveSnapshot(token string, snap Snapshot) {
	if gm.rdb == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		gm.log.Error("marshal snapshot", "session", token, "err", err)
		return
	}
	ttl := time.Hour
	if gm.config != nil && gm.config.SnapshotTTLMinutes > 0 {
		ttl = time.Duration(gm.config.SnapshotTTLMinutes) * time.Minute
	}
	gm.enqueue("save_snapshot", func(ctx context.Context) error {
		return gm.rdb.SetEx(ctx, snapshotKey(token), data, ttl).Err()
	})
}

// loadSnapshotFromRedis restores the last saved snapshot of a session.
func (gm *GameManager) loadSnapshotFromRedis(token string) (Snapshot, error) {
	var snap Snapshot
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := gm.rdb.Get(ctx, snapshotKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return snap, ErrSessionNotFound
	}
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// touch marks the session active and pushes its idle deadline forward.
// The Redis deadline has one second resolution, so it is only rewritten
// when it actually moves; a drag sends many commands a second.
func (gm *GameManager) touch(ls *liveSession) {
	now := time.Now()
	ls.lastActive.Store(now.UnixNano())
	if gm.rdb == nil {
		return
	}
	deadline := now.Add(gm.idleTimeout()).Unix()
	if ls.idleScore.Swap(deadline) == deadline {
		return
	}
	gm.enqueue("touch", func(ctx context.Context) error {
		return gm.rdb.ZAdd(ctx, IdleSetKey, redis.Z{Score: float64(deadline), Member: ls.token}).Err()
	})
}

func (gm *GameManager) forgetRedisState(token string) {
	if gm.rdb == nil {
		return
	}
	gm.enqueue("forget", func(ctx context.Context) error {
		pipe := gm.rdb.TxPipeline()
		pipe.ZRem(ctx, IdleSetKey, token)
		pipe.Del(ctx, snapshotKey(token))
		_, err := pipe.Exec(ctx)
		return err
	})
}

// SessionCommand is a message on SessionEventsChannel.
type SessionCommand struct {
	Type   string `json:"type"`
	Token  string `json:"session_token"`
	Reason string `json:"reason,omitempty"`
	Origin string `json:"origin"`
}

const CommandCloseSession = "close_session"

// requestRemoteClose asks whichever instance owns the session to close it.
func (gm *GameManager) requestRemoteClose(token, reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b, _ := json.Marshal(SessionCommand{Type: CommandCloseSession, Token: token, Reason: reason, Origin: gm.instanceID})
	n, err := gm.rdb.Publish(ctx, SessionEventsChannel, b).Result()
	if err != nil {
		return err
	}
	gm.log.Info("forwarded close request", "session", token, "reason", reason, "subscribers", n)
	gm.markClosed(token, time.Now().UTC())
	return nil
}
