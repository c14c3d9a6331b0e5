package game

import (
	"time"
)

// ShotOutcome is a shot completed by the table settling.
type ShotOutcome struct {
	ShotInfo
	Variant      TableVariant `json:"table_variant"`
	Pocketed     []int        `json:"pocketed"`
	CueScratched bool         `json:"cue_scratched"`
	Ticks        int          `json:"ticks"`
}

// TickResult reports what a single Session.Tick did.
type TickResult struct {
	Tick uint64
	// Ran is false while the session sits in the menu.
	Ran    bool
	Moving bool
	Events []CollisionEvent
	// Pocketed lists object balls whose capture finished this tick.
	Pocketed     []int
	CueScratched bool
	CueRespawned bool
	// Settled is set on the tick that returns the session to aiming.
	Settled *ShotOutcome
}

// Changed reports whether a client would see anything new.
func (r TickResult) Changed() bool {
	return r.Moving || len(r.Events) > 0 || len(r.Pocketed) > 0 ||
		r.CueScratched || r.CueRespawned || r.Settled != nil
}

// Snapshot is a read-only copy of a session for rendering and storage.
type Snapshot struct {
	Variant       TableVariant `json:"table"`
	Mode          GameMode     `json:"mode"`
	State         GameState    `json:"state"`
	CurrentPlayer int          `json:"current_player"`
	Balls         BallSet      `json:"balls"`
	Pocketed      []int        `json:"pocketed"`
	ShotNumber    int          `json:"shot_number"`
	Tick          uint64       `json:"tick"`
	Aiming        bool         `json:"aiming"`
	DragStart     *Vec2        `json:"drag_start,omitempty"`
	DragEnd       *Vec2        `json:"drag_end,omitempty"`
	Aim           *AimPreview  `json:"aim,omitempty"`
	Guide         *AimGuide    `json:"guide,omitempty"`
	// CueRespawnPending is true between the cue ball dropping and coming back.
	CueRespawnPending bool `json:"cue_respawn_pending"`
}

type scheduledKind int

const (
	respawnCue scheduledKind = iota
)

// scheduledEvent fires inside Tick once the session clock reaches due.
type scheduledEvent struct {
	due  time.Duration
	kind scheduledKind
}

type shotInFlight struct {
	info      ShotInfo
	pocketed  []int
	scratched bool
	startTick uint64
}

// Session is one game on one table: the ball set, the state machine, the
// drag gesture and the scheduled respawns. It is not safe for concurrent
// use; GameManager gives each session a single owning goroutine.
type Session struct {
	catalog *Catalog
	geom    TableGeometry
	engine  *PhysicsEngine
	shots   ShotController

	Variant       TableVariant
	Mode          GameMode
	State         GameState
	CurrentPlayer int
	Balls         BallSet
	Pocketed      []int
	ShotNumber    int

	dragging  bool
	dragStart Vec2
	dragEnd   Vec2

	tick    uint64
	clock   time.Duration
	pending []scheduledEvent
	inShot  *shotInFlight
}

// NewSession creates a racked session on the given table. It starts in the
// menu; StartGame moves it to aiming.
func NewSession(catalog *Catalog, variant TableVariant, mode GameMode) (*Session, error) {
	if mode != ModePractice && mode != ModeTwoPlayer {
		return nil, ErrInvalidMode
	}
	s := &Session{
		catalog:       catalog,
		Mode:          mode,
		State:         StateMenu,
		CurrentPlayer: 1,
	}
	if err := s.useTable(variant); err != nil {
		return nil, err
	}
	s.rack()
	return s, nil
}

func (s *Session) useTable(variant TableVariant) error {
	geom, err := s.catalog.Geometry(variant)
	if err != nil {
		return err
	}
	s.geom = geom
	s.engine = NewPhysicsEngine(geom)
	s.shots = NewShotController(geom.Config())
	s.Variant = variant
	return nil
}

// rack lays out a fresh ball set and forgets everything tied to the old one,
// including a cue-ball respawn that has not fired yet.
func (s *Session) rack() {
	s.Balls = s.geom.Rack()
	s.Pocketed = nil
	s.pending = nil
	s.inShot = nil
	s.dragging = false
}

// Geometry returns the active table.
func (s *Session) Geometry() TableGeometry { return s.geom }

// StartGame sets the mode, gives the turn to player 1 and racks.
func (s *Session) StartGame(mode GameMode) error {
	if mode != ModePractice && mode != ModeTwoPlayer {
		return ErrInvalidMode
	}
	s.Mode = mode
	s.ResetRack()
	return nil
}

// ShowMenu parks the session; ticks stop advancing it.
func (s *Session) ShowMenu() {
	s.State = StateMenu
	s.dragging = false
}

// SelectTable swaps the table and racks on it. A session in the menu stays
// there; otherwise play resumes from aiming.
func (s *Session) SelectTable(variant TableVariant) error {
	if err := s.useTable(variant); err != nil {
		return err
	}
	if s.State == StateMenu {
		s.rack()
		s.CurrentPlayer = 1
		return nil
	}
	s.ResetRack()
	return nil
}

// ResetRack starts a new rack on the current table.
func (s *Session) ResetRack() {
	s.rack()
	s.State = StateAiming
	s.CurrentPlayer = 1
}

// StartShot begins a drag. The drag is anchored on the cue ball centre
// whatever was clicked; pointer becomes the first drag end.
func (s *Session) StartShot(pointer Vec2) bool {
	if s.State != StateAiming {
		return false
	}
	cue := s.Balls.CueBall()
	if cue == nil {
		return false
	}
	s.dragging = true
	s.dragStart = cue.Position
	s.dragEnd = pointer
	return true
}

// UpdateShot moves the drag end.
func (s *Session) UpdateShot(pointer Vec2) {
	if s.dragging {
		s.dragEnd = pointer
	}
}

// CancelShot drops the drag without firing.
func (s *Session) CancelShot() {
	s.dragging = false
}

// AimPreview returns power and direction for the current drag.
func (s *Session) AimPreview() (AimPreview, bool) {
	if !s.dragging || s.State != StateAiming {
		return AimPreview{}, false
	}
	return s.shots.Preview(s.dragStart, s.dragEnd), true
}

// ReleaseShot ends the drag and fires if the session is aiming and the drag
// left the dead zone by enough. A weak drag fires nothing and is not an error.
func (s *Session) ReleaseShot() (ShotInfo, bool) {
	wasDragging := s.dragging
	s.dragging = false
	if !wasDragging || s.State != StateAiming {
		return ShotInfo{}, false
	}

	aim, ok := s.shots.Fire(s.Balls.CueBall(), s.dragStart, s.dragEnd)
	if !ok {
		return ShotInfo{}, false
	}

	s.ShotNumber++
	info := ShotInfo{
		Number: s.ShotNumber,
		Player: s.CurrentPlayer,
		Power:  aim.Power,
		Angle:  aim.Angle,
	}
	s.inShot = &shotInFlight{info: info, startTick: s.tick}
	s.State = StateMoving
	return info, true
}

// Tick advances the session by one fixed step. Nothing happens in the menu.
func (s *Session) Tick() TickResult {
	if s.State == StateMenu {
		return TickResult{Tick: s.tick}
	}
	s.tick++
	s.clock += TickPeriod
	res := TickResult{Tick: s.tick, Ran: true}

	s.runDueEvents(&res)

	balls, step := s.engine.Step(s.Balls)
	s.Balls = balls
	res.Moving = step.Moving
	res.Events = step.Events

	for _, b := range step.Removed {
		if b.IsCue() {
			res.CueScratched = true
			s.schedule(CueRespawnDelay, respawnCue)
			if s.inShot != nil {
				s.inShot.scratched = true
			}
			continue
		}
		s.Pocketed = append(s.Pocketed, b.ID)
		res.Pocketed = append(res.Pocketed, b.ID)
		if s.inShot != nil {
			s.inShot.pocketed = append(s.inShot.pocketed, b.ID)
		}
	}

	if s.State == StateMoving && step.Settled() {
		s.State = StateAiming
		res.Settled = s.finishShot()
		if s.Mode == ModeTwoPlayer {
			s.switchPlayer()
		}
	}
	return res
}

func (s *Session) finishShot() *ShotOutcome {
	if s.inShot == nil {
		return nil
	}
	out := &ShotOutcome{
		ShotInfo:     s.inShot.info,
		Variant:      s.Variant,
		Pocketed:     s.inShot.pocketed,
		CueScratched: s.inShot.scratched,
		Ticks:        int(s.tick - s.inShot.startTick),
	}
	if out.Pocketed == nil {
		out.Pocketed = []int{}
	}
	s.inShot = nil
	return out
}

func (s *Session) switchPlayer() {
	if s.CurrentPlayer == 1 {
		s.CurrentPlayer = 2
	} else {
		s.CurrentPlayer = 1
	}
}

func (s *Session) schedule(after time.Duration, kind scheduledKind) {
	s.pending = append(s.pending, scheduledEvent{due: s.clock + after, kind: kind})
}

func (s *Session) runDueEvents(res *TickResult) {
	kept := s.pending[:0]
	for _, ev := range s.pending {
		if s.clock < ev.due {
			kept = append(kept, ev)
			continue
		}
		switch ev.kind {
		case respawnCue:
			if s.Balls.CueBall() == nil {
				s.Balls = append(s.Balls, newBall(CueBallID, s.geom.CueSpawn()))
				res.CueRespawned = true
			}
		}
	}
	s.pending = kept
}

// Snapshot copies the session state. The copy shares nothing with the session.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Variant:       s.Variant,
		Mode:          s.Mode,
		State:         s.State,
		CurrentPlayer: s.CurrentPlayer,
		Balls:         s.Balls.Clone(),
		Pocketed:      append([]int{}, s.Pocketed...),
		ShotNumber:    s.ShotNumber,
		Tick:          s.tick,
		Aiming:        s.dragging,
	}
	if aim, ok := s.AimPreview(); ok {
		start, end := s.dragStart, s.dragEnd
		snap.DragStart, snap.DragEnd, snap.Aim = &start, &end, &aim
		if cue := s.Balls.CueBall(); cue != nil {
			guide := buildAimGuide(cue, s.Balls, aim.Angle, s.geom.Config().BallRadius)
			snap.Guide = &guide
		}
	}
	for _, ev := range s.pending {
		if ev.kind == respawnCue {
			snap.CueRespawnPending = true
		}
	}
	return snap
}
