package game

import (
	"errors"
	"math"
	"testing"
)

func geometry(t *testing.T, v TableVariant) TableGeometry {
	t.Helper()
	g, err := DefaultCatalog().Geometry(v)
	if err != nil {
		t.Fatalf("%s: %v", v, err)
	}
	return g
}

func TestPocketCounts(t *testing.T) {
	tests := []struct {
		variant TableVariant
		want    int
	}{
		{TableStandard, 6},
		{TableElongated, 10},
		{TableCross, 12},
		{TableDonut, 18},
	}
	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			pockets := geometry(t, tt.variant).Pockets()
			if len(pockets) != tt.want {
				t.Fatalf("got %d pockets, want %d", len(pockets), tt.want)
			}
			for i, p := range pockets {
				if p.ID != i {
					t.Errorf("pocket %d has id %d", i, p.ID)
				}
			}
		})
	}
}

func TestRackLayout(t *testing.T) {
	for _, v := range Variants {
		t.Run(string(v), func(t *testing.T) {
			g := geometry(t, v)
			balls := g.Rack()
			if len(balls) != NumBalls {
				t.Fatalf("got %d balls, want %d", len(balls), NumBalls)
			}

			seen := map[int]bool{}
			for _, b := range balls {
				if seen[b.ID] {
					t.Fatalf("duplicate ball %d", b.ID)
				}
				seen[b.ID] = true
			}

			cue := balls.CueBall()
			if cue == nil || cue.Position != g.CueSpawn() {
				t.Fatalf("cue ball not at spawn: %+v", cue)
			}
			if balls[0].ID != 1 || balls[len(balls)-1].ID != CueBallID {
				t.Errorf("rack order: first %d last %d", balls[0].ID, balls[len(balls)-1].ID)
			}

			r := g.Config().BallRadius
			for i := 0; i < len(balls); i++ {
				for j := i + 1; j < len(balls); j++ {
					if d := balls[i].Position.DistanceTo(balls[j].Position); d < 2*r {
						t.Errorf("balls %d and %d overlap (%.2f)", balls[i].ID, balls[j].ID, d)
					}
				}
			}
		})
	}
}

func TestRackIsAtRestAfterOneTick(t *testing.T) {
	for _, v := range Variants {
		g := geometry(t, v)
		_, res := NewPhysicsEngine(g).Step(g.Rack())
		if !res.Settled() || len(res.Events) != 0 {
			t.Errorf("%s: fresh rack should be settled with no events, got %+v", v, res)
		}
	}
}

func TestCrossRightArmOnlyUsesRightArmWalls(t *testing.T) {
	g := geometry(t, TableCross)
	pockets := g.Pockets()

	// entering the right arm at mid height: no wall is close
	b := ballAt(1, 805, 450, 4, 0)
	g.ResolveBoundary(b, pockets)
	if b.Position != NewVec2(805, 450) || b.Velocity != NewVec2(4, 0) {
		t.Errorf("ball changed: pos %v vel %v", b.Position, b.Velocity)
	}

	// the same x just below the right arm's top wall is pushed down
	b = ballAt(1, 820, 330, 0, -2)
	g.ResolveBoundary(b, pockets)
	if b.Position.Y != 300+25+12 || b.Velocity.Y <= 0 {
		t.Errorf("right arm top wall: pos %v vel %v", b.Position, b.Velocity)
	}
}

func TestCrossInnerCornerUsesOneWall(t *testing.T) {
	g := geometry(t, TableCross)

	// past both the top arm's right wall and the right arm's top wall,
	// deeper into the top arm: only the side wall of the top arm fires
	b := ballAt(1, 780, 320, 3, -3)
	g.ResolveBoundary(b, g.Pockets())
	if b.Position != NewVec2(800-25-12, 320) {
		t.Errorf("pos = %v, want (763, 320)", b.Position)
	}
	if math.Abs(b.Velocity.X+2.4) > 1e-9 || b.Velocity.Y != -3 {
		t.Errorf("vel = %v, want (-2.4, -3)", b.Velocity)
	}
}

func TestCrossBallNeverCutsThroughInnerCorner(t *testing.T) {
	g := geometry(t, TableCross)
	engine := NewPhysicsEngine(g)

	// heading from the centre square at the corner between the top and
	// right arms
	b := ballAt(1, 765, 340, 4, -4)
	balls := BallSet{b}
	maxMove := b.Speed()
	for i := 0; i < 30; i++ {
		before := b.Position
		balls, _ = engine.Step(balls)
		if b.Position.X > 763+1e-9 && b.Position.Y < 337-1e-9 {
			t.Fatalf("tick %d: centre %v inside the corner block", i, b.Position)
		}
		if moved := b.Position.DistanceTo(before); moved > 2*maxMove {
			t.Fatalf("tick %d: ball jumped %.2f from %v to %v", i, moved, before, b.Position)
		}
	}
}

func TestCrossCenterHasNoWalls(t *testing.T) {
	g := geometry(t, TableCross)
	b := ballAt(1, 600, 450, -3, 2)
	g.ResolveBoundary(b, g.Pockets())
	if b.Velocity != NewVec2(-3, 2) {
		t.Errorf("centre square should not reflect, vel %v", b.Velocity)
	}
}

func TestCrossTopArmSideWall(t *testing.T) {
	g := geometry(t, TableCross)
	b := ballAt(1, 430, 150, -5, 0)
	g.ResolveBoundary(b, g.Pockets())

	if b.Position.X != 400+25+12 {
		t.Errorf("x = %.2f, want %.2f", b.Position.X, 400.0+25+12)
	}
	if b.Velocity.X != 4 {
		t.Errorf("vx = %.2f, want 4", b.Velocity.X)
	}
}

func TestDonutHoleReflectsOnlyWhenMovingIn(t *testing.T) {
	g := geometry(t, TableDonut)
	pockets := g.Pockets()
	rad := g.Config().BallRadius

	// overlapping the hole's left edge and moving into it
	b := ballAt(1, 595, 420, 3, 1)
	g.ResolveBoundary(b, pockets)
	if b.Position.X != 600-rad {
		t.Errorf("x = %.2f, want %.2f", b.Position.X, 600-rad)
	}
	if math.Abs(b.Velocity.X+3*CushionRestitution) > 1e-12 || b.Velocity.Y != 1 {
		t.Errorf("vel = %v", b.Velocity)
	}

	// same spot, already moving away: untouched
	b = ballAt(1, 595, 420, -3, 1)
	g.ResolveBoundary(b, pockets)
	if b.Position.X != 595 || b.Velocity.X != -3 {
		t.Errorf("leaving ball changed: pos %v vel %v", b.Position, b.Velocity)
	}
}

func TestDonutHoleBottomEdge(t *testing.T) {
	g := geometry(t, TableDonut)
	b := ballAt(1, 700, 655, 0, -2)
	g.ResolveBoundary(b, g.Pockets())

	if b.Position.Y != 650+12 || math.Abs(b.Velocity.Y-2*CushionRestitution) > 1e-12 {
		t.Errorf("pos %v vel %v", b.Position, b.Velocity)
	}
}

func TestPocketMouthSuppressesRail(t *testing.T) {
	g := geometry(t, TableStandard)
	p := g.Pockets()[1] // top middle
	b := ballAt(1, p.Position.X, p.Position.Y+20, 0, -3)

	g.ResolveBoundary(b, g.Pockets())
	if b.Velocity.Y != -3 {
		t.Errorf("ball in a pocket mouth must not bounce, vel %v", b.Velocity)
	}
}

func TestNewGeometryValidation(t *testing.T) {
	cfg := geometry(t, TableStandard).Config()

	if _, err := NewGeometry(TableCross, cfg); err == nil {
		t.Error("cross without module size should fail")
	}
	if _, err := NewGeometry(TableDonut, cfg); err == nil {
		t.Error("donut without hole should fail")
	}
	if _, err := NewGeometry("oval", cfg); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}

	bad := cfg
	bad.Friction = 1.5
	if _, err := NewGeometry(TableStandard, bad); err == nil {
		t.Error("friction above 1 should fail")
	}
}

func TestParseVariant(t *testing.T) {
	if v, err := ParseVariant(" Donut "); err != nil || v != TableDonut {
		t.Errorf("ParseVariant(Donut) = %q, %v", v, err)
	}
	if _, err := ParseVariant("snooker"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}
}
