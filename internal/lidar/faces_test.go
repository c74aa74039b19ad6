package lidar

import (
	"math"
	"testing"
)

// faceParams is a tuning that suits the 5 mm grids used across these tests:
// the normal radius stays below the diagonal to a neighbouring plane so
// estimates never mix faces.
func faceParams() Params {
	p := DefaultParams()
	p.FaceRadius = 12
	p.MinFacePoints = 5
	p.NormalRadius = 6
	p.MaxNormalAngle = 20 * math.Pi / 180
	p.MaxMeanAngle = 20 * math.Pi / 180
	p.MaxMeanAngleSingle = 10 * math.Pi / 180
	return p
}

func extractFaces(t *testing.T, points []Point, p Params) []Face {
	t.Helper()
	tree := NewOctreeWithLimits(points, p.MaxPointsPerLeaf, p.MinNodeHalfExtent)
	normals := ComputeNormals(points, tree, p.NormalRadius)
	return ExtractFaces(points, tree, normals, p)
}

func TestExtractFacesPlanarSlab(t *testing.T) {
	points := planarGrid(20, 5) // 400 coplanar points
	faces := extractFaces(t, points, faceParams())

	if len(faces) != 1 {
		t.Fatalf("got %d faces, want 1", len(faces))
	}
	face := faces[0]
	if len(face.Indices) != len(points) {
		t.Errorf("face holds %d points, want %d", len(face.Indices), len(points))
	}
	if math.Abs(face.Normal.Norm()-1) > 1e-9 {
		t.Errorf("mean normal not unit: %v", face.Normal)
	}
	if angle := face.Normal.Angle(NewPoint(0, 0, 1)); angle > 1e-6 {
		t.Errorf("mean normal off Z by %f rad", angle)
	}
	if face.Thickness() > 1e-9 {
		t.Errorf("thickness %f, want ~0", face.Thickness())
	}
	if math.Abs(face.Box.Delta.X-95) > 1e-6 || math.Abs(face.Box.Delta.Y-95) > 1e-6 {
		t.Errorf("in-plane extents (%f, %f), want (95, 95)", face.Box.Delta.X, face.Box.Delta.Y)
	}
}

func TestExtractFacesIndicesSortedUnique(t *testing.T) {
	points := planarGrid(15, 5)
	faces := extractFaces(t, points, faceParams())
	if len(faces) == 0 {
		t.Fatal("no faces extracted")
	}
	for fi, face := range faces {
		for i := 1; i < len(face.Indices); i++ {
			if face.Indices[i] <= face.Indices[i-1] {
				t.Fatalf("face %d: indices not strictly ascending at %d", fi, i)
			}
		}
	}
}

func TestExtractFacesTwoPerpendicularPlanes(t *testing.T) {
	// An L-shape: one plane in XY, one in XZ, sharing the y=0 edge region.
	var points []Point
	for i := 0; i < 15; i++ {
		for j := 1; j < 15; j++ {
			points = append(points, NewPoint(float64(i)*5, float64(j)*5, 0))
			points = append(points, NewPoint(float64(i)*5, 0, float64(j)*5))
		}
	}
	faces := extractFaces(t, points, faceParams())

	if len(faces) != 2 {
		t.Fatalf("got %d faces, want 2", len(faces))
	}
	z := NewPoint(0, 0, 1)
	y := NewPoint(0, 1, 0)
	var sawXY, sawXZ bool
	for _, f := range faces {
		switch {
		case f.Normal.Angle(z) < 0.1:
			sawXY = true
		case f.Normal.Angle(y) < 0.1:
			sawXZ = true
		}
	}
	if !sawXY || !sawXZ {
		t.Errorf("expected one face per plane orientation, got normals %v, %v", faces[0].Normal, faces[1].Normal)
	}
}

func TestExtractFacesZeroNormalsExcluded(t *testing.T) {
	// A dense plane plus isolated strays: the strays get no normal estimate
	// and must not seed or join any face.
	points := planarGrid(10, 5)
	points = append(points, NewPoint(500, 500, 500), NewPoint(-500, -500, -500))
	p := faceParams()
	faces := extractFaces(t, points, p)

	if len(faces) != 1 {
		t.Fatalf("got %d faces, want 1", len(faces))
	}
	for _, idx := range faces[0].Indices {
		if idx >= 100 {
			t.Errorf("stray point %d absorbed into face", idx)
		}
	}
}

func TestFaceAreaAndThickness(t *testing.T) {
	f := Face{Box: NewBBoxExtents(10, 20, 0.5)}
	if got := f.Area(); got != 200 {
		t.Errorf("Area: got %f, want 200", got)
	}
	if got := f.Thickness(); got != 0.5 {
		t.Errorf("Thickness: got %f, want 0.5", got)
	}
}
