package l4perception

import "math"

// PerpendicularDistance returns the unsigned distance from point to the
// infinite line through lineStart and lineEnd. When the two line points are
// exactly equal the line collapses to a point and the Euclidean distance to
// lineStart is returned instead. Non-finite inputs propagate as NaN.
func PerpendicularDistance(point, lineStart, lineEnd Point2D) float64 {
	if lineStart == lineEnd {
		return math.Hypot(point.X-lineStart.X, point.Y-lineStart.Y)
	}
	dx := lineEnd.X - lineStart.X
	dy := lineEnd.Y - lineStart.Y
	// cross(end-start, start-point)
	cross := dx*(lineStart.Y-point.Y) - dy*(lineStart.X-point.X)
	return math.Abs(cross) / math.Hypot(dx, dy)
}
