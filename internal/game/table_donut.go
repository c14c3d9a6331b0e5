package game

// donutTable is a large rectangle with a rectangular hole in the middle.
// The hole edges are cushions themselves; there is no extra rail inset.
type donutTable struct {
	cfg     TableConfig
	hole    Rect
	pockets []Pocket
}

func newDonutTable(cfg TableConfig) *donutTable {
	t := &donutTable{cfg: cfg, hole: *cfg.Hole}
	tl, tr, bl, br := cornerPockets(cfg)
	r, w, h := cfg.RailSize, cfg.Width, cfg.Height
	hole := t.hole
	const off = 5.0

	t.pockets = numberPockets(
		// top edge
		tl,
		NewVec2(w*0.33, r-off-5),
		NewVec2(w*0.67, r-off-5),
		tr,
		// right edge
		NewVec2(w-r+off+5, h*0.25),
		NewVec2(w-r+off+5, h*0.5),
		NewVec2(w-r+off+5, h*0.75),
		// bottom edge
		br,
		NewVec2(w*0.67, h-r+off+5),
		NewVec2(w*0.33, h-r+off+5),
		bl,
		// left edge
		NewVec2(r-off-5, h*0.25),
		NewVec2(r-off-5, h*0.5),
		NewVec2(r-off-5, h*0.75),
		// hole, one per side
		NewVec2(hole.X+hole.Width*0.5, hole.Y+r-off-5),
		NewVec2(hole.Right()-r+off+5, hole.Y+hole.Height*0.5),
		NewVec2(hole.X+hole.Width*0.5, hole.Bottom()-r+off+5),
		NewVec2(hole.X+r-off-5, hole.Y+hole.Height*0.5),
	)
	return t
}

func (t *donutTable) Variant() TableVariant { return TableDonut }
func (t *donutTable) Config() TableConfig   { return t.cfg }
func (t *donutTable) Pockets() []Pocket     { return t.pockets }

// CueSpawn sits in the upper band, right of the hole.
func (t *donutTable) CueSpawn() Vec2 {
	return NewVec2(t.cfg.Width*0.75, t.cfg.Height*0.2)
}

// Rack places the triangle in the upper band, left of centre.
func (t *donutTable) Rack() BallSet {
	apex := NewVec2(t.cfg.Width*0.3, t.cfg.Height*0.2)
	return rackTriangle(apex, t.CueSpawn(), t.cfg.BallRadius)
}

func (t *donutTable) ResolveBoundary(b *Ball, pockets []Pocket) {
	if b.Pocketing || nearPocketMouth(b, pockets, t.cfg) {
		return
	}
	rail := t.cfg.RailSize
	bounceRect(b, rail, rail, t.cfg.Width-rail, t.cfg.Height-rail, t.cfg.BallRadius)
	t.bounceHole(b)
}

type holeEdge int

const (
	edgeLeft holeEdge = iota
	edgeRight
	edgeTop
	edgeBottom
)

// bounceHole pushes a ball that overlaps the hole back out through the
// nearest hole edge. The ball is only reflected when its velocity points
// into that edge; a ball already leaving is left alone so a deep overlap
// is never resolved out of the wrong side.
func (t *donutTable) bounceHole(b *Ball) {
	rad := t.cfg.BallRadius
	left := t.hole.Left() - rad
	right := t.hole.Right() + rad
	top := t.hole.Top() - rad
	bottom := t.hole.Bottom() + rad

	p := b.Position
	if p.X <= left || p.X >= right || p.Y <= top || p.Y >= bottom {
		return
	}

	edge, depth := edgeLeft, p.X-left
	if d := right - p.X; d < depth {
		edge, depth = edgeRight, d
	}
	if d := p.Y - top; d < depth {
		edge, depth = edgeTop, d
	}
	if d := bottom - p.Y; d < depth {
		edge = edgeBottom
	}

	switch edge {
	case edgeLeft:
		if b.Velocity.X > 0 {
			b.Position.X = left
			b.Velocity.X = -b.Velocity.X * CushionRestitution
		}
	case edgeRight:
		if b.Velocity.X < 0 {
			b.Position.X = right
			b.Velocity.X = -b.Velocity.X * CushionRestitution
		}
	case edgeTop:
		if b.Velocity.Y > 0 {
			b.Position.Y = top
			b.Velocity.Y = -b.Velocity.Y * CushionRestitution
		}
	case edgeBottom:
		if b.Velocity.Y < 0 {
			b.Position.Y = bottom
			b.Velocity.Y = -b.Velocity.Y * CushionRestitution
		}
	}
}
