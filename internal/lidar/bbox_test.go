package lidar

import (
	"math"
	"testing"
)

func TestBBoxFromPoints(t *testing.T) {
	points := []Point{
		NewPoint(1, -2, 3),
		NewPoint(-4, 5, 0),
		NewPoint(2, 2, 2),
	}
	box := NewBBox(points)
	if !box.Min.Equal(NewPoint(-4, -2, 0)) {
		t.Errorf("Min: got %v", box.Min)
	}
	if !box.Max.Equal(NewPoint(2, 5, 3)) {
		t.Errorf("Max: got %v", box.Max)
	}
	if !box.Delta.Equal(NewPoint(6, 7, 3)) {
		t.Errorf("Delta: got %v", box.Delta)
	}
	if got := box.Volume(); got != 126 {
		t.Errorf("Volume: got %f, want 126", got)
	}
}

func TestBBoxEmpty(t *testing.T) {
	box := NewBBox(nil)
	if box.Volume() != 0 {
		t.Errorf("empty box volume: got %f", box.Volume())
	}
}

func TestBBoxOrderingByVolume(t *testing.T) {
	small := NewBBoxExtents(1, 1, 1)
	big := NewBBoxExtents(2, 2, 2)
	if !small.Less(big) || big.Less(small) {
		t.Error("expected ordering by volume")
	}
}

// Rotating a point set before taking its rotated bounding box must leave
// the extents unchanged when the rotation is folded into the box rotation.
func TestBBoxRotationExtentsStable(t *testing.T) {
	points := []Point{
		NewPoint(0, 0, 0),
		NewPoint(100, 0, 0),
		NewPoint(0, 50, 0),
		NewPoint(100, 50, 0),
	}
	flat := NewBBoxRotated(points, IdentityRotation)

	normal := NewPoint(1, 1, 1).Normalize()
	rot := RotationTo(normal)
	// Tilt the plane so its normal is `normal`, then ask for the box in the
	// frame where that normal is +Z again.
	inv := RotationMatrix{rot[0], rot[3], rot[6], rot[1], rot[4], rot[7], rot[2], rot[5], rot[8]}
	tilted := make([]Point, len(points))
	for i, p := range points {
		tilted[i] = p.Rotate(inv)
	}
	back := NewBBoxRotated(tilted, rot)

	if math.Abs(back.Delta.X-flat.Delta.X) > 1e-9 ||
		math.Abs(back.Delta.Y-flat.Delta.Y) > 1e-9 ||
		math.Abs(back.Delta.Z-flat.Delta.Z) > 1e-9 {
		t.Errorf("extents changed under rotation: got %v, want %v", back.Delta, flat.Delta)
	}
}
