package lidar

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// randomCloud generates a reproducible cloud in [0, extent)³.
func randomCloud(n int, extent float64, seed int64) []Point {
	rng := rand.New(rand.NewSource(seed))
	points := make([]Point, n)
	for i := range points {
		points[i] = NewPoint(rng.Float64()*extent, rng.Float64()*extent, rng.Float64()*extent)
	}
	return points
}

// bruteForceNeighbors is the linear-scan ground truth for SearchNeighbors.
func bruteForceNeighbors(points []Point, center Point, radius float64, kernel Kernel) []int {
	var out []int
	for i, p := range points {
		if inKernel(p, center, radius, kernel) {
			out = append(out, i)
		}
	}
	return out
}

func TestSearchNeighborsMatchesLinearScan(t *testing.T) {
	points := randomCloud(500, 1000, 1)
	tree := NewOctree(points)

	kernels := []struct {
		name   string
		kernel Kernel
	}{
		{"sphere", KernelSphere},
		{"cube", KernelCube},
		{"cylinder", KernelCylinder},
	}

	rng := rand.New(rand.NewSource(2))
	for _, k := range kernels {
		for trial := 0; trial < 20; trial++ {
			center := NewPoint(rng.Float64()*1000, rng.Float64()*1000, rng.Float64()*1000)
			radius := 50 + rng.Float64()*150

			got := tree.SearchNeighbors(center, radius, k.kernel)
			want := bruteForceNeighbors(points, center, radius, k.kernel)
			sort.Ints(got)
			sort.Ints(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("%s kernel, trial %d: neighbor mismatch (-want +got):\n%s", k.name, trial, diff)
			}
		}
	}
}

func TestSearchNeighborsBoundaryInclusive(t *testing.T) {
	points := []Point{NewPoint(0, 0, 0), NewPoint(10, 0, 0), NewPoint(10.001, 0, 0)}
	tree := NewOctree(points)
	got := tree.SearchNeighbors(NewPoint(0, 0, 0), 10, KernelSphere)
	sort.Ints(got)
	if diff := cmp.Diff([]int{0, 1}, got); diff != "" {
		t.Errorf("boundary point handling (-want +got):\n%s", diff)
	}
}

func TestSearchNeighborsEmptyTree(t *testing.T) {
	tree := NewOctree(nil)
	if got := tree.SearchNeighbors(NewPoint(0, 0, 0), 100, KernelSphere); got != nil {
		t.Errorf("empty tree query: got %v, want nil", got)
	}
}

func TestOctreeCoincidentPointsTerminate(t *testing.T) {
	// More identical points than fit one leaf: subdivision must stop at the
	// minimum node extent instead of recursing forever.
	points := make([]Point, DefaultMaxPointsPerLeaf*4)
	for i := range points {
		points[i] = NewPoint(5, 5, 5)
	}
	tree := NewOctree(points)
	got := tree.SearchNeighbors(NewPoint(5, 5, 5), 1, KernelSphere)
	if len(got) != len(points) {
		t.Errorf("coincident cloud query: got %d points, want %d", len(got), len(points))
	}
}

func TestCylinderKernelShape(t *testing.T) {
	points := []Point{
		NewPoint(0, 0, 0),
		NewPoint(9, 0, 0),  // inside radially
		NewPoint(11, 0, 0), // outside radially
		NewPoint(0, 0, 9),  // inside axially
		NewPoint(0, 0, 11), // outside axially
		NewPoint(8, 8, 0),  // radial diagonal beyond radius (11.3)
		NewPoint(6, 6, 9),  // inside both (radial 8.49)
	}
	tree := NewOctree(points)
	got := tree.SearchNeighbors(NewPoint(0, 0, 0), 10, KernelCylinder)
	sort.Ints(got)
	if diff := cmp.Diff([]int{0, 1, 3, 6}, got); diff != "" {
		t.Errorf("cylinder kernel (-want +got):\n%s", diff)
	}
}

func TestOctreeQueryCost(t *testing.T) {
	// Sanity check on the pruned search path rather than a benchmark: a
	// small-radius query in a large uniform cloud must return the same number
	// of points as a linear scan, all within the radius. The number of nodes
	// visited is not measured.
	points := randomCloud(5000, 2000, 3)
	tree := NewOctree(points)
	center := NewPoint(1000, 1000, 1000)
	got := tree.SearchNeighbors(center, 25, KernelSphere)
	want := bruteForceNeighbors(points, center, 25, KernelSphere)
	if len(got) != len(want) {
		t.Errorf("large cloud query: got %d results, want %d", len(got), len(want))
	}
	for _, i := range got {
		if points[i].Distance(center) > 25+1e-9 {
			t.Errorf("point %d at distance %f outside radius", i, points[i].Distance(center))
		}
	}
}
