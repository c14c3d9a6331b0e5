package game

// rackTriangle places the fifteen object balls in RackOrder with the apex
// at apex and each following row further toward -x, then appends the cue
// ball at cue. Every table variant racks this way; only the two anchor
// points differ.
func rackTriangle(apex, cue Vec2, ballRadius float64) BallSet {
	spacing := ballRadius * RackSpacingFactor
	balls := make(BallSet, 0, NumBalls)

	for row, ids := range RackOrder {
		rowOffset := -float64(len(ids)-1) / 2 * spacing
		for j, id := range ids {
			balls = append(balls, newBall(id, NewVec2(
				apex.X-float64(row)*spacing*RackRowFactor,
				apex.Y+rowOffset+float64(j)*spacing,
			)))
		}
	}

	balls = append(balls, newBall(CueBallID, cue))
	return balls
}
