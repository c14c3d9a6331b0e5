package game

import "math"

// crossTable is a plus-shaped table laid out on a 3x3 grid of modules:
// four arms joined at a central square. With 400x300 modules the arm
// boundaries fall at x=400, x=800, y=300 and y=600 of a 1200x900 table.
type crossTable struct {
	cfg     TableConfig
	pockets []Pocket

	// arm break points
	x0, x1, y0, y1 float64
}

func newCrossTable(cfg TableConfig) *crossTable {
	mw, mh := cfg.Module.Width, cfg.Module.Height
	t := &crossTable{
		cfg: cfg,
		x0:  mw, x1: 2 * mw,
		y0: mh, y1: 2 * mh,
	}

	r, w, h := cfg.RailSize, cfg.Width, cfg.Height
	const off = 5.0
	t.pockets = numberPockets(
		// top arm
		NewVec2(t.x0+r-off, r-off),
		NewVec2(w/2, r-off-5),
		NewVec2(t.x1-r+off, r-off),
		// right arm
		NewVec2(w-r+off, t.y0+r-off),
		NewVec2(w-r+off+5, h/2),
		NewVec2(w-r+off, t.y1-r+off),
		// bottom arm
		NewVec2(t.x1-r+off, h-r+off),
		NewVec2(w/2, h-r+off+5),
		NewVec2(t.x0+r-off, h-r+off),
		// left arm
		NewVec2(r-off, t.y1-r+off),
		NewVec2(r-off-5, h/2),
		NewVec2(r-off, t.y0+r-off),
	)
	return t
}

func (t *crossTable) Variant() TableVariant { return TableCross }
func (t *crossTable) Config() TableConfig   { return t.cfg }
func (t *crossTable) Pockets() []Pocket     { return t.pockets }

// CueSpawn is the middle of the left arm.
func (t *crossTable) CueSpawn() Vec2 {
	return NewVec2(t.x0/2, t.cfg.Height/2)
}

// Rack puts the apex in the centre of the central square.
func (t *crossTable) Rack() BallSet {
	apex := NewVec2(t.cfg.Width/2, t.cfg.Height/2)
	return rackTriangle(apex, t.CueSpawn(), t.cfg.BallRadius)
}

type crossArm int

const (
	armCenter crossArm = iota
	armTop
	armBottom
	armLeft
	armRight
)

// armOf classifies a ball centre against the break points moved in by the
// rail and the ball radius, so a ball touching an arm's side wall already
// counts as inside that arm. Near an inner corner a centre can be past both
// a horizontal and a vertical break; it is given to the arm it has entered
// more deeply, whose side wall then moves it out of the corner block along
// the shorter way. Exactly one arm matches, so the wall tests of neighbouring
// arms can never both fire.
func (t *crossTable) armOf(p Vec2) crossArm {
	in := t.cfg.RailSize + t.cfg.BallRadius
	loX, hiX := t.x0+in, t.x1-in
	loY, hiY := t.y0+in, t.y1-in

	vertical, dy := armCenter, 0.0
	switch {
	case p.Y < loY:
		vertical, dy = armTop, loY-p.Y
	case p.Y > hiY:
		vertical, dy = armBottom, p.Y-hiY
	}
	horizontal, dx := armCenter, 0.0
	switch {
	case p.X < loX:
		horizontal, dx = armLeft, loX-p.X
	case p.X > hiX:
		horizontal, dx = armRight, p.X-hiX
	}

	switch {
	case horizontal == armCenter:
		return vertical
	case vertical == armCenter:
		return horizontal
	case dx <= dy:
		return vertical
	}
	return horizontal
}

// ResolveBoundary runs the half-plane tests of the arm the ball is in.
// Each test reflects only the velocity component normal to its wall.
func (t *crossTable) ResolveBoundary(b *Ball, pockets []Pocket) {
	if b.Pocketing || nearPocketMouth(b, pockets, t.cfg) {
		return
	}

	rail, rad := t.cfg.RailSize, t.cfg.BallRadius
	w, h := t.cfg.Width, t.cfg.Height

	switch t.armOf(b.Position) {
	case armTop:
		wallLow(&b.Position.X, &b.Velocity.X, t.x0+rail, rad)
		wallHigh(&b.Position.X, &b.Velocity.X, t.x1-rail, rad)
		wallLow(&b.Position.Y, &b.Velocity.Y, rail, rad)
	case armBottom:
		wallLow(&b.Position.X, &b.Velocity.X, t.x0+rail, rad)
		wallHigh(&b.Position.X, &b.Velocity.X, t.x1-rail, rad)
		wallHigh(&b.Position.Y, &b.Velocity.Y, h-rail, rad)
	case armLeft:
		wallLow(&b.Position.Y, &b.Velocity.Y, t.y0+rail, rad)
		wallHigh(&b.Position.Y, &b.Velocity.Y, t.y1-rail, rad)
		wallLow(&b.Position.X, &b.Velocity.X, rail, rad)
	case armRight:
		wallLow(&b.Position.Y, &b.Velocity.Y, t.y0+rail, rad)
		wallHigh(&b.Position.Y, &b.Velocity.Y, t.y1-rail, rad)
		wallHigh(&b.Position.X, &b.Velocity.X, w-rail, rad)
	}
}

// wallLow handles a wall at coordinate wall that keeps the ball above it
// (left or top wall); wallHigh the opposite side.
func wallLow(pos, vel *float64, wall, radius float64) {
	if *pos-radius < wall {
		*pos = wall + radius
		*vel = math.Abs(*vel) * CushionRestitution
	}
}

func wallHigh(pos, vel *float64, wall, radius float64) {
	if *pos+radius > wall {
		*pos = wall - radius
		*vel = -math.Abs(*vel) * CushionRestitution
	}
}
