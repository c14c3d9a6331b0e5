package game

// Ball is one ball on the table.
type Ball struct {
	ID       int  `json:"id"`
	Position Vec2 `json:"position"`
	Velocity Vec2 `json:"velocity"`
	// Rotation is the distance rolled so far; clients use it as a texture phase.
	Rotation float64 `json:"rotation"`

	Pocketing      bool    `json:"pocketing"`
	PocketProgress float64 `json:"pocket_progress"`
	TargetPocket   *Vec2   `json:"target_pocket,omitempty"`

	// pocketFrames counts capture ticks; PocketProgress is derived from it so
	// the animation ends on exactly the PocketDuration-th tick.
	pocketFrames int
}

func newBall(id int, pos Vec2) *Ball {
	return &Ball{ID: id, Position: pos}
}

// IsCue reports whether b is the cue ball.
func (b *Ball) IsCue() bool {
	return b.ID == CueBallID
}

// Speed is the magnitude of the velocity.
func (b *Ball) Speed() float64 {
	return b.Velocity.Magnitude()
}

// startPocketing captures b into the pocket at target.
func (b *Ball) startPocketing(target Vec2) {
	b.Pocketing = true
	b.PocketProgress = 0
	b.pocketFrames = 0
	t := target
	b.TargetPocket = &t
}

// BallSet is the ordered collection of balls still in play.
type BallSet []*Ball

// CueBall returns the cue ball, or nil while it is off the table.
func (s BallSet) CueBall() *Ball {
	for _, b := range s {
		if b.IsCue() {
			return b
		}
	}
	return nil
}

// Find returns the ball with the given id, or nil.
func (s BallSet) Find(id int) *Ball {
	for _, b := range s {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// AnyPocketing reports whether a capture animation is still running.
func (s BallSet) AnyPocketing() bool {
	for _, b := range s {
		if b.Pocketing {
			return true
		}
	}
	return false
}

// Clone deep-copies the set so snapshots never alias live balls.
func (s BallSet) Clone() BallSet {
	out := make(BallSet, len(s))
	for i, b := range s {
		c := *b
		if b.TargetPocket != nil {
			t := *b.TargetPocket
			c.TargetPocket = &t
		}
		out[i] = &c
	}
	return out
}
