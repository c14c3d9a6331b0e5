package game

import "math"

// CollisionEvent records a contact during a tick, for clients that play sounds
// and for the shot history.
type CollisionEvent struct {
	Type     string  `json:"type"` // "ball", "wall", "pocket"
	BallID   int     `json:"ball_id"`
	TargetID int     `json:"target_id"` // other ball ID or pocket ID; -1 for walls
	Speed    float64 `json:"speed"`     // impact speed, for sound volume
}

const (
	EventBall   = "ball"
	EventWall   = "wall"
	EventPocket = "pocket"
)

// StepResult reports what one physics tick did.
type StepResult struct {
	// Moving is true when at least one ball was integrated this tick.
	Moving bool
	// Pocketing is true while any capture animation is still running.
	Pocketing bool
	// Removed holds the balls whose capture animation finished, in removal order.
	Removed []Ball
	Events  []CollisionEvent
}

// Settled reports whether the table came to rest on this tick.
func (r StepResult) Settled() bool {
	return !r.Moving && !r.Pocketing
}

// PhysicsEngine advances a BallSet by fixed ticks against one table geometry.
// It holds no ball state of its own, so one engine can serve any number of
// sessions on the same table.
type PhysicsEngine struct {
	Geometry TableGeometry
}

// NewPhysicsEngine creates a physics engine for a table geometry.
func NewPhysicsEngine(geom TableGeometry) *PhysicsEngine {
	return &PhysicsEngine{Geometry: geom}
}

// Step runs one tick and returns the set with finished captures removed.
func (pe *PhysicsEngine) Step(balls BallSet) (BallSet, StepResult) {
	var res StepResult
	cfg := pe.Geometry.Config()
	pockets := pe.Geometry.Pockets()

	for _, b := range balls {
		if !b.Pocketing && pe.integrate(b, cfg) {
			res.Moving = true
		}
		hardClamp(b, cfg)
	}

	for i := 0; i < len(balls); i++ {
		for j := i + 1; j < len(balls); j++ {
			if ev, ok := collideBalls(balls[i], balls[j], cfg.BallRadius); ok {
				res.Events = append(res.Events, ev)
			}
		}
	}

	for _, b := range balls {
		if b.Pocketing {
			continue
		}
		before := b.Velocity
		pe.Geometry.ResolveBoundary(b, pockets)
		if b.Velocity != before {
			res.Events = append(res.Events, CollisionEvent{
				Type: EventWall, BallID: b.ID, TargetID: -1, Speed: before.Magnitude(),
			})
		}
	}

	for _, b := range balls {
		if b.Pocketing {
			continue
		}
		if p, ok := capturingPocket(b, pockets, cfg.PocketRadius); ok {
			res.Events = append(res.Events, CollisionEvent{
				Type: EventPocket, BallID: b.ID, TargetID: p.ID, Speed: b.Speed(),
			})
			b.startPocketing(p.Position)
		}
	}

	kept := balls[:0]
	for _, b := range balls {
		if b.Pocketing {
			animatePocketing(b)
			if b.pocketFrames >= PocketDuration {
				res.Removed = append(res.Removed, *b)
				continue
			}
		}
		kept = append(kept, b)
	}
	res.Pocketing = kept.AnyPocketing()
	// clear the tail so removed balls are not retained by the backing array
	for i := len(kept); i < len(balls); i++ {
		balls[i] = nil
	}

	return kept, res
}

// integrate moves b by one tick if either velocity component is above the
// cutoff. Position moves first, then rotation, then friction and the snap to
// zero, so later phases see the already damped velocity.
func (pe *PhysicsEngine) integrate(b *Ball, cfg TableConfig) bool {
	if math.Abs(b.Velocity.X) <= cfg.MinVelocity && math.Abs(b.Velocity.Y) <= cfg.MinVelocity {
		return false
	}
	b.Position = b.Position.Plus(b.Velocity)
	b.Rotation += b.Velocity.Magnitude()
	b.Velocity = b.Velocity.Times(cfg.Friction)

	if math.Abs(b.Velocity.X) < cfg.MinVelocity {
		b.Velocity.X = 0
	}
	if math.Abs(b.Velocity.Y) < cfg.MinVelocity {
		b.Velocity.Y = 0
	}
	return true
}

// hardClamp returns a ball that escaped the canvas to just inside the rail,
// whatever the table shape.
func hardClamp(b *Ball, cfg TableConfig) {
	inset := cfg.RailSize + cfg.BallRadius
	if b.Position.X < 0 {
		b.Position.X = inset
		b.Velocity.X = math.Abs(b.Velocity.X) * HardClampDamping
	}
	if b.Position.X > cfg.Width {
		b.Position.X = cfg.Width - inset
		b.Velocity.X = -math.Abs(b.Velocity.X) * HardClampDamping
	}
	if b.Position.Y < 0 {
		b.Position.Y = inset
		b.Velocity.Y = math.Abs(b.Velocity.Y) * HardClampDamping
	}
	if b.Position.Y > cfg.Height {
		b.Position.Y = cfg.Height - inset
		b.Velocity.Y = -math.Abs(b.Velocity.Y) * HardClampDamping
	}
}

// collideBalls resolves an equal-mass elastic collision between two
// approaching, overlapping balls. Balls at exactly the same centre have no
// normal and are left alone.
func collideBalls(b1, b2 *Ball, radius float64) (CollisionEvent, bool) {
	if b1.Pocketing || b2.Pocketing {
		return CollisionEvent{}, false
	}
	delta := b2.Position.Minus(b1.Position)
	dist := delta.Magnitude()
	minDist := radius * 2
	if dist >= minDist || dist <= 0 {
		return CollisionEvent{}, false
	}

	n := delta.Times(1 / dist)
	dvn := b1.Velocity.Minus(b2.Velocity).Dot(n)
	if dvn <= 0 {
		return CollisionEvent{}, false
	}

	b1.Velocity = b1.Velocity.Minus(n.Times(dvn))
	b2.Velocity = b2.Velocity.Plus(n.Times(dvn))

	half := n.Times((minDist - dist) / 2)
	b1.Position = b1.Position.Minus(half)
	b2.Position = b2.Position.Plus(half)

	return CollisionEvent{Type: EventBall, BallID: b1.ID, TargetID: b2.ID, Speed: dvn}, true
}

// capturingPocket returns the first pocket whose capture radius contains b.
func capturingPocket(b *Ball, pockets []Pocket, radius float64) (Pocket, bool) {
	for _, p := range pockets {
		if b.Position.DistanceTo(p.Position) < radius {
			return p, true
		}
	}
	return Pocket{}, false
}

// animatePocketing advances a capture by one frame: an ease-in pull toward
// the pocket centre plus a bleed of the remaining momentum.
func animatePocketing(b *Ball) {
	b.pocketFrames++
	b.PocketProgress = float64(b.pocketFrames) / PocketDuration
	if b.TargetPocket != nil {
		pull := PocketPullBase + b.PocketProgress*PocketPullGain
		b.Position = b.Position.Plus(b.TargetPocket.Minus(b.Position).Times(pull))
	}
	b.Velocity = b.Velocity.Times(PocketVelocityBleed)
}
