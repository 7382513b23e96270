// Package geom provides the planar geometry primitives shared by the
// calibration and rendering packages: points, angles, and quad helpers.
package geom

import "math"

// Point is a position in an arbitrary planar coordinate space. The unit
// (millimetres or pixels) is determined by the caller.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p scaled by k.
func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Norm returns the euclidean length of p treated as a vector.
func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Rotate returns p rotated by angleDeg degrees (counter-clockwise in a
// y-down raster space this appears clockwise) about the pivot.
func (p Point) Rotate(angleDeg float64, pivot Point) Point {
	rad := DegToRad(angleDeg)
	sin, cos := math.Sincos(rad)
	dx := p.X - pivot.X
	dy := p.Y - pivot.Y
	return Point{
		X: pivot.X + dx*cos - dy*sin,
		Y: pivot.Y + dx*sin + dy*cos,
	}
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Quad is an ordered set of four corners. Order is semantically load-bearing
// throughout the calibration pipeline: top-left, top-right, bottom-right,
// bottom-left as seen on the projected surface.
type Quad [4]Point

// Centroid returns the arithmetic mean of the four corners.
func (q Quad) Centroid() Point {
	var c Point
	for _, p := range q {
		c.X += p.X
		c.Y += p.Y
	}
	return Point{X: c.X / 4, Y: c.Y / 4}
}

// EdgeLengths returns the lengths of the four edges in corner order:
// top, right, bottom, left.
func (q Quad) EdgeLengths() [4]float64 {
	return [4]float64{
		q[0].Dist(q[1]),
		q[1].Dist(q[2]),
		q[2].Dist(q[3]),
		q[3].Dist(q[0]),
	}
}

// Degenerate reports whether any three corners of the quad are collinear (or
// coincident) within tol. Such a quad cannot define a perspective transform.
func (q Quad) Degenerate(tol float64) bool {
	for i := 0; i < 4; i++ {
		a := q[i]
		b := q[(i+1)%4]
		c := q[(i+2)%4]
		if Collinear(a, b, c, tol) {
			return true
		}
	}
	return false
}

// Collinear reports whether the triangle a-b-c has area below tol, which
// covers both collinear and coincident configurations.
func Collinear(a, b, c Point, tol float64) bool {
	// Twice the signed triangle area via the cross product.
	area2 := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	return math.Abs(area2) < 2*tol
}
