package game

import (
	"errors"
	"fmt"
	"strings"
)

// TableVariant selects one of the supported table geometries.
type TableVariant string

const (
	TableStandard  TableVariant = "standard"
	TableElongated TableVariant = "elongated"
	TableCross     TableVariant = "cross"
	TableDonut     TableVariant = "donut"
)

// Variants lists every table variant in menu order.
var Variants = []TableVariant{TableStandard, TableElongated, TableCross, TableDonut}

var ErrUnknownTable = errors.New("unknown table variant")

// ParseVariant accepts a variant name, case-insensitive.
func ParseVariant(s string) (TableVariant, error) {
	v := TableVariant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Variants {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTable, s)
}

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

func (r Rect) Left() float64   { return r.X }
func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// TableConfig holds the tunables of one table variant.
type TableConfig struct {
	Width           float64 `json:"table_width" yaml:"width"`
	Height          float64 `json:"table_height" yaml:"height"`
	RailSize        float64 `json:"rail_size" yaml:"rail_size"`
	BallRadius      float64 `json:"ball_radius" yaml:"ball_radius"`
	PocketRadius    float64 `json:"pocket_radius" yaml:"pocket_radius"`
	Friction        float64 `json:"friction" yaml:"friction"`
	MinVelocity     float64 `json:"min_velocity" yaml:"min_velocity"`
	MaxPower        float64 `json:"max_power" yaml:"max_power"`
	PowerMultiplier float64 `json:"power_multiplier" yaml:"power_multiplier"`
	DeadZone        float64 `json:"dead_zone" yaml:"dead_zone"`

	// Module is the arm size of the cross table (the table is a 3x3 grid of modules).
	Module *Size `json:"module,omitempty" yaml:"module,omitempty"`
	// Hole is the inner cut-out of the donut table.
	Hole *Rect `json:"inner_hole,omitempty" yaml:"inner_hole,omitempty"`
}

// Validate rejects configurations the physics cannot run on.
func (c TableConfig) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return errors.New("table size must be positive")
	case c.BallRadius <= 0:
		return errors.New("ball_radius must be positive")
	case c.PocketRadius <= 0:
		return errors.New("pocket_radius must be positive")
	case c.RailSize < 0:
		return errors.New("rail_size must not be negative")
	case c.Friction <= 0 || c.Friction > 1:
		return errors.New("friction must be in (0, 1]")
	case c.MinVelocity <= 0:
		return errors.New("min_velocity must be positive")
	case c.MaxPower <= 0 || c.PowerMultiplier <= 0:
		return errors.New("max_power and power_multiplier must be positive")
	case c.DeadZone < 0:
		return errors.New("dead_zone must not be negative")
	}
	return nil
}

// Pocket is a static capture point. Its capture radius is TableConfig.PocketRadius.
type Pocket struct {
	ID       int  `json:"id"`
	Position Vec2 `json:"position"`
}

// TableGeometry supplies the shape-dependent rules of a table: where the
// pockets are, how the balls are racked, and how a ball bounces off the rails.
type TableGeometry interface {
	Variant() TableVariant
	Config() TableConfig
	Pockets() []Pocket
	// CueSpawn is where the cue ball is placed on a rack and on respawn.
	CueSpawn() Vec2
	// Rack returns a freshly racked BallSet: the fifteen object balls in
	// triangle order followed by the cue ball.
	Rack() BallSet
	// ResolveBoundary reflects a non-pocketing ball off the table's rails.
	ResolveBoundary(b *Ball, pockets []Pocket)
}

// NewGeometry builds the geometry for a variant from its config.
func NewGeometry(variant TableVariant, cfg TableConfig) (TableGeometry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("table %s: %w", variant, err)
	}
	switch variant {
	case TableStandard:
		return newStandardTable(cfg), nil
	case TableElongated:
		return newElongatedTable(cfg), nil
	case TableCross:
		if cfg.Module == nil {
			return nil, fmt.Errorf("table %s: module size is required", variant)
		}
		return newCrossTable(cfg), nil
	case TableDonut:
		if cfg.Hole == nil {
			return nil, fmt.Errorf("table %s: inner_hole is required", variant)
		}
		return newDonutTable(cfg), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTable, variant)
}

// nearPocketMouth reports whether rail collision must be skipped for b
// because it is inside a pocket mouth or heading into one.
func nearPocketMouth(b *Ball, pockets []Pocket, cfg TableConfig) bool {
	for _, p := range pockets {
		dist := b.Position.DistanceTo(p.Position)
		if dist < cfg.PocketRadius+PocketMouthMargin {
			return true
		}
		if dist < cfg.PocketRadius*PocketApproachZone {
			toPocket := p.Position.Minus(b.Position)
			if b.Velocity.Dot(toPocket) > 0 {
				return true
			}
		}
	}
	return false
}

// bounceRect keeps b inside the rail-inset rectangle [left,right]x[top,bottom].
// The velocity is negated rather than forced outward, as on the original tables.
func bounceRect(b *Ball, left, top, right, bottom, radius float64) {
	if b.Position.X-radius < left {
		b.Position.X = left + radius
		b.Velocity.X = -b.Velocity.X * CushionRestitution
	}
	if b.Position.X+radius > right {
		b.Position.X = right - radius
		b.Velocity.X = -b.Velocity.X * CushionRestitution
	}
	if b.Position.Y-radius < top {
		b.Position.Y = top + radius
		b.Velocity.Y = -b.Velocity.Y * CushionRestitution
	}
	if b.Position.Y+radius > bottom {
		b.Position.Y = bottom - radius
		b.Velocity.Y = -b.Velocity.Y * CushionRestitution
	}
}

// cornerPockets returns the four corner pockets of a rectangular table,
// each sitting 5 units into the rail.
func cornerPockets(cfg TableConfig) (tl, tr, bl, br Vec2) {
	r, w, h := cfg.RailSize, cfg.Width, cfg.Height
	const off = 5.0
	return NewVec2(r-off, r-off), NewVec2(w-r+off, r-off),
		NewVec2(r-off, h-r+off), NewVec2(w-r+off, h-r+off)
}

func numberPockets(points ...Vec2) []Pocket {
	pockets := make([]Pocket, len(points))
	for i, p := range points {
		pockets[i] = Pocket{ID: i, Position: p}
	}
	return pockets
}
