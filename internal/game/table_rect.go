package game

// rectTable is an axis-aligned rectangular table (standard and elongated).
type rectTable struct {
	variant TableVariant
	cfg     TableConfig
	pockets []Pocket
}

// newStandardTable is the 2:1-ish six-pocket table.
func newStandardTable(cfg TableConfig) *rectTable {
	tl, tr, bl, br := cornerPockets(cfg)
	r, w, h := cfg.RailSize, cfg.Width, cfg.Height

	return &rectTable{
		variant: TableStandard,
		cfg:     cfg,
		pockets: numberPockets(
			tl,
			NewVec2(w/2, r-10),
			tr,
			bl,
			NewVec2(w/2, h-r+10),
			br,
		),
	}
}

// newElongatedTable has ten pockets: the four corners, two on each long
// rail at one and two thirds, and one in the middle of each short rail.
func newElongatedTable(cfg TableConfig) *rectTable {
	tl, tr, bl, br := cornerPockets(cfg)
	r, w, h := cfg.RailSize, cfg.Width, cfg.Height

	return &rectTable{
		variant: TableElongated,
		cfg:     cfg,
		pockets: numberPockets(
			tl,
			NewVec2(w*0.33, r-10),
			NewVec2(w*0.67, r-10),
			tr,
			NewVec2(r-10, h/2),
			NewVec2(w-r+10, h/2),
			bl,
			NewVec2(w*0.33, h-r+10),
			NewVec2(w*0.67, h-r+10),
			br,
		),
	}
}

func (t *rectTable) Variant() TableVariant { return t.variant }
func (t *rectTable) Config() TableConfig   { return t.cfg }
func (t *rectTable) Pockets() []Pocket     { return t.pockets }

func (t *rectTable) CueSpawn() Vec2 {
	return NewVec2(t.cfg.Width*0.75, t.cfg.Height/2)
}

func (t *rectTable) Rack() BallSet {
	apex := NewVec2(t.cfg.Width*0.3, t.cfg.Height/2)
	return rackTriangle(apex, t.CueSpawn(), t.cfg.BallRadius)
}

func (t *rectTable) ResolveBoundary(b *Ball, pockets []Pocket) {
	if b.Pocketing || nearPocketMouth(b, pockets, t.cfg) {
		return
	}
	rail := t.cfg.RailSize
	bounceRect(b, rail, rail, t.cfg.Width-rail, t.cfg.Height-rail, t.cfg.BallRadius)
}
