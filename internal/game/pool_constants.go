package game

import "time"

// Physics and table constants shared by every table variant.
// Per-table tunables (sizes, friction, power) live in TableConfig.

const (
	NumBalls   = 16 // 0=cue, 1-15 object balls
	CueBallID  = 0
	TickRate   = 60
	TickPeriod = time.Second / TickRate

	CushionRestitution = 0.8 // rail bounce keeps 80% of the normal component
	HardClampDamping   = 0.3 // canvas safety net keeps 30%

	PocketDuration      = 18   // ticks for the capture animation (~0.3s at 60Hz)
	PocketPullBase      = 0.3  // pull fraction at progress 0
	PocketPullGain      = 0.5  // extra pull per unit of progress
	PocketVelocityBleed = 0.85 // residual velocity kept per pocketing tick

	PocketMouthMargin  = 5.0 // rail ignored within pocketRadius+margin of a pocket
	PocketApproachZone = 1.5 // ...and within pocketRadius*zone when heading into it

	MinShotPower = 0.5 // weaker releases are treated as aiming adjustments

	RackSpacingFactor = 2.1   // ball spacing in the rack, in ball radii
	RackRowFactor     = 0.866 // sin(60°), row-to-row distance per spacing

	CueRespawnDelay = 500 * time.Millisecond
)

// RackOrder is the triangle layout, apex first.
var RackOrder = [][]int{
	{1},
	{11, 6},
	{2, 8, 10},
	{13, 3, 15, 7},
	{5, 4, 14, 12, 9},
}
