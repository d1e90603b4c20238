package vecmath

import "math"

// PointInPolygon reports whether p lies inside the closed polygon poly
// using the crossing-number rule. Edges are half-open, so points on a
// left or bottom edge count as inside and points on a right or top edge
// count as outside. Polygons with fewer than three vertices contain
// nothing.
func PointInPolygon(p Vec2, poly []Vec2) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// PolygonArea returns the unsigned shoelace area of poly.
func PolygonArea(poly []Vec2) float64 {
	if len(poly) < 3 {
		return 0
	}
	sum := 0.0
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		sum += poly[j].X*poly[i].Y - poly[i].X*poly[j].Y
	}
	return math.Abs(sum) / 2
}

// BoundsOf returns the component-wise minimum and maximum of points.
func BoundsOf(points []Vec2) (min, max Vec2) {
	if len(points) == 0 {
		return Vec2{}, Vec2{}
	}
	min, max = points[0], points[0]
	for _, p := range points[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}
