package lidar

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// clump builds a dense axis-aligned block of points around origin.
func clump(origin Point, n int, spacing float64) []Point {
	points := make([]Point, 0, n)
	side := 1
	for side*side*side < n {
		side++
	}
	for i := 0; i < n; i++ {
		x := i % side
		y := (i / side) % side
		z := i / (side * side)
		points = append(points, origin.Add(NewPoint(float64(x)*spacing, float64(y)*spacing, float64(z)*spacing)))
	}
	return points
}

func TestClustersTwoSeparatedClumps(t *testing.T) {
	points := append(clump(NewPoint(0, 0, 0), 50, 10), clump(NewPoint(1000, 0, 0), 50, 10)...)
	tree := NewOctree(points)

	clusters := Clusters(points, tree, 100, 5)
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}
	if len(clusters[0])+len(clusters[1]) != 100 {
		t.Errorf("clusters cover %d points, want 100", len(clusters[0])+len(clusters[1]))
	}
	// Array-order iteration makes the first clump cluster 0.
	if clusters[0][0] != 0 {
		t.Errorf("first cluster starts at index %d, want 0", clusters[0][0])
	}
	for _, idx := range clusters[1] {
		if points[idx].X < 500 {
			t.Fatalf("index %d from the first clump landed in cluster 1", idx)
		}
	}
}

func TestClustersSparseInputAllNoise(t *testing.T) {
	points := []Point{
		NewPoint(0, 0, 0),
		NewPoint(500, 0, 0),
		NewPoint(0, 500, 0),
	}
	tree := NewOctree(points)
	clusters := Clusters(points, tree, 50, 2)
	if len(clusters) != 0 {
		t.Fatalf("got %d clusters, want 0", len(clusters))
	}
	for i, p := range points {
		if p.ClusterID != ClusterNoise {
			t.Errorf("point %d: cluster id %d, want noise", i, p.ClusterID)
		}
	}
}

func TestClustersAllIdenticalPoints(t *testing.T) {
	n := 40
	points := make([]Point, n)
	for i := range points {
		points[i] = NewPoint(7, 7, 7)
	}
	tree := NewOctree(points)
	clusters := Clusters(points, tree, 10, n)
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if len(clusters[0]) != n {
		t.Errorf("cluster size %d, want %d", len(clusters[0]), n)
	}
}

func TestClustersBelowThresholdIdenticalPoints(t *testing.T) {
	points := make([]Point, 5)
	for i := range points {
		points[i] = NewPoint(7, 7, 7)
	}
	tree := NewOctree(points)
	if clusters := Clusters(points, tree, 10, 6); len(clusters) != 0 {
		t.Fatalf("got %d clusters, want 0", len(clusters))
	}
}

func TestClustersEmptyInput(t *testing.T) {
	if clusters := Clusters(nil, NewOctree(nil), 10, 3); clusters != nil {
		t.Errorf("got %v, want nil", clusters)
	}
}

func TestClustersDisjointPartition(t *testing.T) {
	points := append(clump(NewPoint(0, 0, 0), 60, 8), clump(NewPoint(400, 400, 0), 30, 8)...)
	points = append(points, NewPoint(-2000, 0, 0)) // isolated noise
	tree := NewOctree(points)

	clusters := Clusters(points, tree, 60, 5)

	seen := make(map[int]int)
	for ci, cluster := range clusters {
		for _, idx := range cluster {
			if prev, dup := seen[idx]; dup {
				t.Fatalf("index %d in clusters %d and %d", idx, prev, ci)
			}
			seen[idx] = ci
		}
	}
	for i, p := range points {
		_, clustered := seen[i]
		if clustered && p.ClusterID < 0 {
			t.Errorf("clustered point %d has tag %d", i, p.ClusterID)
		}
		if !clustered && p.ClusterID != ClusterNoise {
			t.Errorf("unclustered point %d has tag %d, want noise", i, p.ClusterID)
		}
	}
}

func TestClustersIdempotentUpToRenumbering(t *testing.T) {
	build := func() ([]Point, [][]int) {
		points := append(clump(NewPoint(0, 0, 0), 40, 10), clump(NewPoint(900, 0, 0), 25, 10)...)
		tree := NewOctree(points)
		return points, Clusters(points, tree, 80, 5)
	}
	_, first := build()
	_, second := build()

	normalize := func(clusters [][]int) [][]int {
		out := make([][]int, len(clusters))
		for i, c := range clusters {
			out[i] = append([]int(nil), c...)
			sort.Ints(out[i])
		}
		sort.Slice(out, func(a, b int) bool { return out[a][0] < out[b][0] })
		return out
	}
	if diff := cmp.Diff(normalize(first), normalize(second)); diff != "" {
		t.Errorf("cluster assignment not stable (-first +second):\n%s", diff)
	}
}

func TestResetClusterIDs(t *testing.T) {
	points := clump(NewPoint(0, 0, 0), 20, 5)
	tree := NewOctree(points)
	Clusters(points, tree, 50, 3)
	ResetClusterIDs(points)
	for i, p := range points {
		if p.ClusterID != ClusterUnclassified {
			t.Errorf("point %d: tag %d after reset", i, p.ClusterID)
		}
	}
}
