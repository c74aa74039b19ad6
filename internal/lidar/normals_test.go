package lidar

import (
	"math"
	"testing"
)

// planarGrid builds an n×n grid in the XY plane at the given spacing.
func planarGrid(n int, spacing float64) []Point {
	points := make([]Point, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			points = append(points, NewPoint(float64(i)*spacing, float64(j)*spacing, 0))
		}
	}
	return points
}

func TestComputeNormalsOnPlane(t *testing.T) {
	points := planarGrid(10, 5)
	tree := NewOctree(points)
	normals := ComputeNormals(points, tree, 10)

	z := NewPoint(0, 0, 1)
	for i, n := range normals {
		if n.IsZero() {
			t.Fatalf("point %d: no normal estimated", i)
		}
		if math.Abs(n.Norm()-1) > 1e-9 {
			t.Errorf("point %d: normal not unit length: %f", i, n.Norm())
		}
		if angle := n.Angle(z); angle > 1e-6 {
			t.Errorf("point %d: normal %v deviates from Z by %f rad", i, n, angle)
		}
	}
}

func TestComputeNormalsInsufficientNeighborhood(t *testing.T) {
	// Three points far apart: each sees only itself within the radius.
	points := []Point{
		NewPoint(0, 0, 0),
		NewPoint(1000, 0, 0),
		NewPoint(0, 1000, 0),
	}
	tree := NewOctree(points)
	normals := ComputeNormals(points, tree, 10)
	for i, n := range normals {
		if !n.IsZero() {
			t.Errorf("point %d: expected zero normal, got %v", i, n)
		}
	}
}

func TestMeanVector(t *testing.T) {
	vs := []Vector{
		NewPoint(1, 0, 0),
		NewPoint(0, 1, 0),
	}
	got := MeanVector(vs)
	want := NewPoint(1, 1, 0).Normalize()
	if got.Distance(want) > 1e-12 {
		t.Errorf("MeanVector: got %v, want %v", got, want)
	}
}

func TestMeanVectorSignAgnostic(t *testing.T) {
	// Opposite estimates of the same plane normal must reinforce, not
	// cancel.
	vs := []Vector{
		NewPoint(0, 0, 1),
		NewPoint(0, 0, -1),
		NewPoint(0, 0, 1),
	}
	got := MeanVector(vs)
	if math.Abs(got.Norm()-1) > 1e-12 {
		t.Fatalf("mean of sign-flipped normals not unit: %v", got)
	}
	if got.Angle(NewPoint(0, 0, 1)) > 1e-12 {
		t.Errorf("mean direction: got %v, want ±Z", got)
	}
}

func TestMeanVectorEmpty(t *testing.T) {
	if got := MeanVector(nil); !got.IsZero() {
		t.Errorf("MeanVector(nil): got %v", got)
	}
}
