package game

import "math"

// AimPreview is what the power meter and cue stick show during a drag.
type AimPreview struct {
	DragDistance float64 `json:"drag_distance"`
	Power        float64 `json:"power"`
	PowerPercent float64 `json:"power_percent"`
	// Angle is the direction the cue ball would travel, in radians.
	Angle      float64 `json:"angle"`
	InDeadZone bool    `json:"in_dead_zone"`
}

// ShotInfo describes a shot that was fired.
type ShotInfo struct {
	Number int     `json:"shot_number"`
	Player int     `json:"player"`
	Power  float64 `json:"power"`
	Angle  float64 `json:"angle"`
}

// ShotController turns a drag gesture into a cue-ball impulse. The drag is
// pulled back from the cue ball; releasing fires away from the pull.
type ShotController struct {
	cfg TableConfig
}

func NewShotController(cfg TableConfig) ShotController {
	return ShotController{cfg: cfg}
}

// Preview computes power and direction for a drag from start to end.
// Power only builds once the drag leaves the dead zone.
func (sc ShotController) Preview(start, end Vec2) AimPreview {
	d := start.Minus(end)
	dist := d.Magnitude()
	effective := math.Max(0, dist-sc.cfg.DeadZone)
	power := math.Min(effective*sc.cfg.PowerMultiplier, sc.cfg.MaxPower)

	return AimPreview{
		DragDistance: dist,
		Power:        power,
		PowerPercent: power / sc.cfg.MaxPower * 100,
		Angle:        d.Angle(),
		InDeadZone:   dist <= sc.cfg.DeadZone,
	}
}

// Fire sets the cue ball moving if the drag is strong enough. A weak drag
// is an aiming adjustment and returns false with the ball untouched.
func (sc ShotController) Fire(cue *Ball, start, end Vec2) (AimPreview, bool) {
	p := sc.Preview(start, end)
	if cue == nil || p.Power <= MinShotPower {
		return p, false
	}
	cue.Velocity = FromAngle(p.Angle, p.Power)
	return p, true
}
