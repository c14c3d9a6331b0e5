package game

import "math"

// AimLineLength is how far the aiming guide reaches from the cue ball.
const AimLineLength = 300.0

// AimGuide is the aiming line drawn from the cue ball. When the line runs
// into an object ball, Contact is where the cue ball centre would be at
// impact (the ghost ball) and the line stops there.
type AimGuide struct {
	From    Vec2  `json:"from"`
	To      Vec2  `json:"to"`
	HitBall int   `json:"hit_ball,omitempty"`
	Contact *Vec2 `json:"contact,omitempty"`
}

// segmentEntersCircle returns the fraction t in [0,1] along p1->p2 where the
// segment first enters the circle. A segment starting inside the circle
// reports false.
func segmentEntersCircle(p1, p2, center Vec2, radius float64) (float64, bool) {
	d := p2.Minus(p1)
	f := p1.Minus(center)

	a := d.Dot(d)
	b := 2 * f.Dot(d)
	c := f.Dot(f) - radius*radius
	if a == 0 || c <= 0 {
		return 0, false
	}

	disc := b*b - 4*a*c
	if disc <= 0 {
		return 0, false
	}
	t := (-b - math.Sqrt(disc)) / (2 * a)
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}

// buildAimGuide traces the aiming line from the cue ball and stops at the
// first object ball it would strike.
func buildAimGuide(cue *Ball, balls BallSet, angle, radius float64) AimGuide {
	from := cue.Position
	to := from.Plus(FromAngle(angle, AimLineLength))
	guide := AimGuide{From: from, To: to}

	best := 2.0
	for _, b := range balls {
		if b.IsCue() || b.Pocketing {
			continue
		}
		// the cue centre touches b when it comes within two radii
		t, ok := segmentEntersCircle(from, to, b.Position, 2*radius)
		if !ok || t >= best {
			continue
		}
		best = t
		contact := from.Lerp(to, t)
		guide.HitBall = b.ID
		guide.Contact = &contact
	}
	if guide.Contact != nil {
		guide.To = *guide.Contact
	}
	return guide
}
