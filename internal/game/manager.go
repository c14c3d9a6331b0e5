package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/logging"
	"github.com/playmatatu/billiards/internal/models"
	"github.com/redis/go-redis/v9"
)

// Event types emitted to the listener.
const (
	EventFrame         = "frame"
	EventShotFired     = "shot_fired"
	EventBallPocketed  = "ball_pocketed"
	EventBallsSettled  = "balls_settled"
	EventSessionClosed = "session_closed"
)

// Event is something a session's clients should hear about.
type Event struct {
	Type  string      `json:"type"`
	Token string      `json:"session_token"`
	Data  interface{} `json:"data,omitempty"`
}

// Listener receives events from the session loops. It is called from the
// loop goroutine and must not block.
type Listener func(ev Event)

// Frame is a snapshot plus the collisions since the previous frame.
type Frame struct {
	Snapshot
	Events []CollisionEvent `json:"events"`
}

// PocketedEvent is the payload of ball_pocketed.
type PocketedEvent struct {
	BallID int  `json:"ball_id"`
	Cue    bool `json:"cue"`
	Player int  `json:"player"`
}

// SettledEvent is the payload of balls_settled.
type SettledEvent struct {
	Shot          *ShotOutcome `json:"shot,omitempty"`
	State         GameState    `json:"state"`
	CurrentPlayer int          `json:"current_player"`
}

// SessionStore is the durable record of sessions and shots.
type SessionStore interface {
	CreateSession(ctx context.Context, sess *models.Session) error
	UpdateSessionTable(ctx context.Context, token, variant, mode string) error
	CloseSession(ctx context.Context, token string, at time.Time) error
	RecordShot(ctx context.Context, shot *models.Shot) error
	CompleteShot(ctx context.Context, token string, shotNumber int, settledAt time.Time,
		pocketed []int, cueScratched bool, ticks int) error
}

// SessionInfo describes a live session.
type SessionInfo struct {
	Token      string       `json:"session_token"`
	Variant    TableVariant `json:"table"`
	Mode       GameMode     `json:"mode"`
	CreatedAt  time.Time    `json:"created_at"`
	LastActive time.Time    `json:"last_active"`
}

type command struct {
	fn        func(s *Session) error
	broadcast bool
	reply     chan error
}

// liveSession is the handle to a session's loop. Only the loop goroutine
// touches the Session itself.
type liveSession struct {
	token      string
	createdAt  time.Time
	variant    atomic.Value // TableVariant
	mode       atomic.Value // GameMode
	lastActive atomic.Int64 // unix nanos
	// idleScore is the last idle deadline queued for Redis, in unix seconds
	idleScore atomic.Int64

	cmds      chan command
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (ls *liveSession) info() SessionInfo {
	return SessionInfo{
		Token:      ls.token,
		Variant:    ls.variant.Load().(TableVariant),
		Mode:       ls.mode.Load().(GameMode),
		CreatedAt:  ls.createdAt,
		LastActive: time.Unix(0, ls.lastActive.Load()),
	}
}

// GameManager owns every live session on this instance.
type GameManager struct {
	catalog    *Catalog
	store      SessionStore
	rdb        *redis.Client
	config     *config.Config
	log        *log.Logger
	instanceID string

	sessions map[string]*liveSession
	listener atomic.Value // Listener
	persist  chan persistJob
	stopping chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.RWMutex
}

var (
	// Global game manager instance
	Manager *GameManager
)

// InitializeManager creates the global manager and starts its background
// jobs. Redis and the store are optional.
func InitializeManager(ctx context.Context, catalog *Catalog, st SessionStore, rdb *redis.Client, cfg *config.Config) {
	Manager = NewGameManager(catalog, st, rdb, cfg)
	Manager.Start(ctx)
}

// NewGameManager creates a manager without starting background jobs.
func NewGameManager(catalog *Catalog, st SessionStore, rdb *redis.Client, cfg *config.Config) *GameManager {
	gm := &GameManager{
		catalog:    catalog,
		store:      st,
		rdb:        rdb,
		config:     cfg,
		log:        logging.For("session"),
		instanceID: generateToken(6),
		sessions:   make(map[string]*liveSession),
		persist:    make(chan persistJob, 1024),
		stopping:   make(chan struct{}),
	}
	gm.listener.Store(Listener(func(Event) {}))
	return gm
}

// Start runs the persistence worker and, without Redis, the in-memory idle
// checker. The checker stops with ctx; the worker runs until Shutdown so
// the final session closes are still written.
func (gm *GameManager) Start(ctx context.Context) {
	gm.wg.Add(1)
	go gm.runPersistence()
	if gm.rdb == nil {
		go gm.StartIdleChecker(ctx)
	}
}

// SetListener installs the event sink (the websocket hub).
func (gm *GameManager) SetListener(l Listener) {
	if l == nil {
		l = func(Event) {}
	}
	gm.listener.Store(l)
}

func (gm *GameManager) emit(ev Event) {
	gm.listener.Load().(Listener)(ev)
}

// Catalog returns the table catalog sessions are built from.
func (gm *GameManager) Catalog() *Catalog { return gm.catalog }

// InstanceID identifies this process on the shared event channel.
func (gm *GameManager) InstanceID() string { return gm.instanceID }

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// CreateSession racks a new session, records it, and starts its loop. The
// session starts in play (aiming), as if the mode had been picked from the menu.
func (gm *GameManager) CreateSession(ctx context.Context, variant TableVariant, mode GameMode, pinHash string) (SessionInfo, error) {
	s, err := NewSession(gm.catalog, variant, mode)
	if err != nil {
		return SessionInfo{}, err
	}
	if err := s.StartGame(mode); err != nil {
		return SessionInfo{}, err
	}

	now := time.Now().UTC()
	token := generateToken(16)
	if gm.store != nil {
		row := &models.Session{
			Token:        token,
			TableVariant: string(variant),
			Mode:         string(mode),
			PinHash:      pinHash,
			CreatedAt:    now,
		}
		if err := gm.store.CreateSession(ctx, row); err != nil {
			return SessionInfo{}, err
		}
	}

	ls := &liveSession{
		token:     token,
		createdAt: now,
		cmds:      make(chan command),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	ls.variant.Store(variant)
	ls.mode.Store(mode)
	ls.lastActive.Store(now.UnixNano())

	gm.mu.Lock()
	gm.sessions[token] = ls
	gm.mu.Unlock()

	go gm.run(ls, s)
	gm.touch(ls)

	gm.log.Info("session created", "session", token, "table", variant, "mode", mode)
	return ls.info(), nil
}

func (gm *GameManager) live(token string) (*liveSession, error) {
	gm.mu.RLock()
	ls, ok := gm.sessions[token]
	gm.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ls, nil
}

// HasSession reports whether the session runs on this instance.
func (gm *GameManager) HasSession(token string) bool {
	_, err := gm.live(token)
	return err == nil
}

// Info describes a live session.
func (gm *GameManager) Info(token string) (SessionInfo, error) {
	ls, err := gm.live(token)
	if err != nil {
		return SessionInfo{}, err
	}
	return ls.info(), nil
}

// ActiveCount returns the number of live sessions.
func (gm *GameManager) ActiveCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.sessions)
}

// do runs fn on the session's loop and waits for it.
func (gm *GameManager) do(token string, broadcast bool, fn func(s *Session) error) error {
	ls, err := gm.live(token)
	if err != nil {
		return err
	}
	cmd := command{fn: fn, broadcast: broadcast, reply: make(chan error, 1)}
	select {
	case ls.cmds <- cmd:
	case <-ls.done:
		return ErrSessionClosed
	}
	select {
	case err := <-cmd.reply:
		if broadcast {
			gm.touch(ls)
		}
		return err
	case <-ls.done:
		return ErrSessionClosed
	}
}

// Snapshot returns the session state. A session owned by another instance
// is served from its last Redis snapshot.
func (gm *GameManager) Snapshot(token string) (Snapshot, error) {
	var snap Snapshot
	err := gm.do(token, false, func(s *Session) error {
		snap = s.Snapshot()
		return nil
	})
	if errors.Is(err, ErrSessionNotFound) && gm.rdb != nil {
		return gm.loadSnapshotFromRedis(token)
	}
	return snap, err
}

func (gm *GameManager) StartGame(token string, mode GameMode) error {
	err := gm.do(token, true, func(s *Session) error { return s.StartGame(mode) })
	if err == nil {
		gm.noteTable(token)
	}
	return err
}

func (gm *GameManager) ShowMenu(token string) error {
	return gm.do(token, true, func(s *Session) error {
		s.ShowMenu()
		return nil
	})
}

func (gm *GameManager) SelectTable(token string, variant TableVariant) error {
	err := gm.do(token, true, func(s *Session) error { return s.SelectTable(variant) })
	if err == nil {
		gm.noteTable(token)
	}
	return err
}

func (gm *GameManager) ResetRack(token string) error {
	return gm.do(token, true, func(s *Session) error {
		s.ResetRack()
		return nil
	})
}

// StartShot begins a drag; false means the session is not accepting one.
func (gm *GameManager) StartShot(token string, pointer Vec2) (bool, error) {
	var ok bool
	err := gm.do(token, true, func(s *Session) error {
		ok = s.StartShot(pointer)
		return nil
	})
	return ok, err
}

func (gm *GameManager) UpdateShot(token string, pointer Vec2) error {
	return gm.do(token, true, func(s *Session) error {
		s.UpdateShot(pointer)
		return nil
	})
}

func (gm *GameManager) CancelShot(token string) error {
	return gm.do(token, true, func(s *Session) error {
		s.CancelShot()
		return nil
	})
}

// ReleaseShot ends the drag. When a shot fires it is recorded and announced.
// The record is queued from the session loop, ahead of anything a later
// tick of the same shot queues.
func (gm *GameManager) ReleaseShot(token string) (ShotInfo, bool, error) {
	var (
		info  ShotInfo
		fired bool
	)
	err := gm.do(token, true, func(s *Session) error {
		info, fired = s.ReleaseShot()
		if fired {
			gm.recordShot(token, s.Variant, info, time.Now().UTC())
		}
		return nil
	})
	if err != nil || !fired {
		return info, fired, err
	}

	gm.emit(Event{Type: EventShotFired, Token: token, Data: info})
	gm.log.Debug("shot fired", "session", token, "shot", info.Number, "power", info.Power)
	return info, true, nil
}

// noteTable refreshes the cached table/mode and the stored row.
func (gm *GameManager) noteTable(token string) {
	var variant TableVariant
	var mode GameMode
	if err := gm.do(token, false, func(s *Session) error {
		variant, mode = s.Variant, s.Mode
		return nil
	}); err != nil {
		return
	}
	if ls, err := gm.live(token); err == nil {
		ls.variant.Store(variant)
		ls.mode.Store(mode)
	}
	gm.updateStoredTable(token, variant, mode)
}

// run is the session loop: commands and ticks, one at a time.
func (gm *GameManager) run(ls *liveSession, s *Session) {
	defer close(ls.done)

	ticker := time.NewTicker(gm.tickPeriod())
	defer ticker.Stop()

	every := 1
	if gm.config != nil && gm.config.FrameBroadcastEvery > 1 {
		every = gm.config.FrameBroadcastEvery
	}

	var pending []CollisionEvent
	sinceFrame := 0
	dirty := false

	flush := func() {
		gm.emit(Event{Type: EventFrame, Token: ls.token, Data: Frame{Snapshot: s.Snapshot(), Events: pending}})
		pending = nil
		sinceFrame = 0
		dirty = false
	}

	for {
		select {
		case <-ls.quit:
			return

		case cmd := <-ls.cmds:
			cmd.reply <- cmd.fn(s)
			if cmd.broadcast {
				flush()
			}

		case <-ticker.C:
			res := s.Tick()
			if !res.Ran {
				continue
			}
			pending = append(pending, res.Events...)
			gm.afterTick(ls.token, s, res)

			if res.Changed() {
				dirty = true
			}
			sinceFrame++
			urgent := res.Settled != nil || len(res.Pocketed) > 0 || res.CueScratched || res.CueRespawned
			if dirty && (urgent || sinceFrame >= every) {
				flush()
			}
		}
	}
}

func (gm *GameManager) afterTick(token string, s *Session, res TickResult) {
	for _, id := range res.Pocketed {
		gm.emit(Event{Type: EventBallPocketed, Token: token, Data: PocketedEvent{BallID: id, Player: s.CurrentPlayer}})
	}
	if res.CueScratched {
		gm.emit(Event{Type: EventBallPocketed, Token: token, Data: PocketedEvent{BallID: CueBallID, Cue: true, Player: s.CurrentPlayer}})
	}
	if res.Settled == nil {
		return
	}

	gm.emit(Event{Type: EventBallsSettled, Token: token, Data: SettledEvent{
		Shot:          res.Settled,
		State:         s.State,
		CurrentPlayer: s.CurrentPlayer,
	}})
	gm.completeShot(token, *res.Settled, time.Now().UTC())
	gm.saveSnapshot(token, s.Snapshot())
}

func (gm *GameManager) tickPeriod() time.Duration {
	if gm.config != nil && gm.config.TickRate > 0 {
		return time.Second / time.Duration(gm.config.TickRate)
	}
	return TickPeriod
}

// Close stops a session and records why. For a session on another
// instance the request is forwarded over Redis.
func (gm *GameManager) Close(token, reason string) error {
	gm.mu.Lock()
	ls, ok := gm.sessions[token]
	if ok {
		delete(gm.sessions, token)
	}
	gm.mu.Unlock()

	if !ok {
		if gm.rdb != nil {
			return gm.requestRemoteClose(token, reason)
		}
		return ErrSessionNotFound
	}

	ls.closeOnce.Do(func() { close(ls.quit) })
	<-ls.done

	gm.markClosed(token, time.Now().UTC())
	gm.forgetRedisState(token)
	gm.emit(Event{Type: EventSessionClosed, Token: token, Data: map[string]string{"reason": reason}})
	gm.log.Info("session closed", "session", token, "reason", reason)
	return nil
}

// StartIdleChecker closes sessions idle longer than SESSION_IDLE_MINUTES.
// It is the fallback when Redis is not configured.
func (gm *GameManager) StartIdleChecker(ctx context.Context) {
	ticker := time.NewTicker(gm.idlePollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gm.checkIdleSessions(time.Now())
		}
	}
}

func (gm *GameManager) checkIdleSessions(now time.Time) int {
	cutoff := now.Add(-gm.idleTimeout()).UnixNano()

	gm.mu.RLock()
	var idle []string
	for token, ls := range gm.sessions {
		if ls.lastActive.Load() < cutoff {
			idle = append(idle, token)
		}
	}
	gm.mu.RUnlock()

	for _, token := range idle {
		if err := gm.Close(token, "idle"); err != nil {
			gm.log.Warn("idle close failed", "session", token, "err", err)
		}
	}
	return len(idle)
}

func (gm *GameManager) idleTimeout() time.Duration {
	if gm.config != nil && gm.config.SessionIdleMinutes > 0 {
		return time.Duration(gm.config.SessionIdleMinutes) * time.Minute
	}
	return 30 * time.Minute
}

func (gm *GameManager) idlePollInterval() time.Duration {
	if gm.config != nil && gm.config.IdleWorkerPollInterval > 0 {
		return time.Duration(gm.config.IdleWorkerPollInterval) * time.Second
	}
	return 15 * time.Second
}

// Shutdown closes every session and drains the persistence queue.
func (gm *GameManager) Shutdown(ctx context.Context) {
	gm.mu.RLock()
	tokens := make([]string, 0, len(gm.sessions))
	for t := range gm.sessions {
		tokens = append(tokens, t)
	}
	gm.mu.RUnlock()

	for _, t := range tokens {
		gm.Close(t, "shutdown")
	}
	gm.stopOnce.Do(func() { close(gm.stopping) })

	done := make(chan struct{})
	go func() {
		gm.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		gm.log.Warn("persistence queue not drained before shutdown deadline")
	}
}
