package geom

import (
	"math"
	"testing"
)

func TestPointArithmetic(t *testing.T) {
	p := Pt(3, 4)
	if got := p.Norm(); got != 5 {
		t.Errorf("Norm() = %v, want 5", got)
	}
	if got := p.Add(Pt(1, -1)); got != Pt(4, 3) {
		t.Errorf("Add() = %v, want (4,3)", got)
	}
	if got := p.Sub(Pt(3, 4)); got != Pt(0, 0) {
		t.Errorf("Sub() = %v, want origin", got)
	}
	if got := p.Scale(2); got != Pt(6, 8) {
		t.Errorf("Scale() = %v, want (6,8)", got)
	}
	if got := Pt(0, 0).Dist(Pt(3, 4)); got != 5 {
		t.Errorf("Dist() = %v, want 5", got)
	}
}

func TestRotateAboutPivot(t *testing.T) {
	tests := []struct {
		name     string
		p        Point
		angleDeg float64
		pivot    Point
		want     Point
	}{
		{"quarter turn about origin", Pt(1, 0), 90, Pt(0, 0), Pt(0, 1)},
		{"half turn about origin", Pt(1, 0), 180, Pt(0, 0), Pt(-1, 0)},
		{"full turn is identity", Pt(2, 3), 360, Pt(0, 0), Pt(2, 3)},
		{"about non-origin pivot", Pt(2, 1), 90, Pt(1, 1), Pt(1, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.p.Rotate(tt.angleDeg, tt.pivot)
			if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
				t.Errorf("Rotate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuadEdgeLengthsAndCentroid(t *testing.T) {
	q := Quad{Pt(0, 0), Pt(4, 0), Pt(4, 2), Pt(0, 2)}
	edges := q.EdgeLengths()
	want := [4]float64{4, 2, 4, 2}
	if edges != want {
		t.Errorf("EdgeLengths() = %v, want %v", edges, want)
	}
	if c := q.Centroid(); c != Pt(2, 1) {
		t.Errorf("Centroid() = %v, want (2,1)", c)
	}
}

func TestQuadDegenerate(t *testing.T) {
	tests := []struct {
		name string
		q    Quad
		want bool
	}{
		{"proper rectangle", Quad{Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10)}, false},
		{"all collinear", Quad{Pt(0, 0), Pt(1, 1), Pt(2, 2), Pt(3, 3)}, true},
		{"three collinear", Quad{Pt(0, 0), Pt(5, 0), Pt(10, 0), Pt(0, 10)}, true},
		{"coincident corners", Quad{Pt(0, 0), Pt(0, 0), Pt(10, 10), Pt(0, 10)}, true},
		{"skewed but valid", Quad{Pt(0, 0), Pt(10, 1), Pt(11, 9), Pt(-1, 10)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Degenerate(1e-6); got != tt.want {
				t.Errorf("Degenerate() = %v, want %v", got, tt.want)
			}
		})
	}
}
