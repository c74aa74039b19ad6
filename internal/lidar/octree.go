package lidar

import "math"

// Octree defaults. Leaves split once they hold more than MaxPointsPerLeaf
// points, but never below MinNodeHalfExtent so degenerate inputs (many
// coincident points) terminate.
const (
	DefaultMaxPointsPerLeaf  = 32
	DefaultMinNodeHalfExtent = 1.0 // mm
)

// Kernel selects the shape of a neighbourhood query.
type Kernel int

const (
	// KernelSphere keeps points within the Euclidean radius of the centre.
	KernelSphere Kernel = iota
	// KernelCube keeps points within the radius along each axis independently.
	KernelCube
	// KernelCylinder keeps points within the radius radially in the XY plane
	// and within the radius axially along Z. The axis is fixed to +Z, the
	// same canonical axis face bounding boxes are rotated onto.
	KernelCylinder
)

// Octree is a recursive axis-aligned subdivision over an externally owned
// point slice. It is built once and immutable afterwards; queries return
// indices into the slice it was built over, so the tree must not outlive
// that slice. Leaves store indices rather than pointers, keeping the tree
// valid regardless of where the backing array lives.
type Octree struct {
	points           []Point
	root             *octreeNode
	maxPointsPerLeaf int
	minHalfExtent    float64
}

type octreeNode struct {
	center     Vector
	halfExtent float64
	children   *[8]*octreeNode // nil for leaves
	indices    []int           // populated only on leaves
}

// NewOctree builds an octree over points with default subdivision limits.
// An empty or nil slice yields an empty tree whose queries return nothing.
func NewOctree(points []Point) *Octree {
	return NewOctreeWithLimits(points, DefaultMaxPointsPerLeaf, DefaultMinNodeHalfExtent)
}

// NewOctreeWithLimits builds an octree with explicit subdivision limits.
func NewOctreeWithLimits(points []Point, maxPointsPerLeaf int, minHalfExtent float64) *Octree {
	if maxPointsPerLeaf < 1 {
		maxPointsPerLeaf = 1
	}
	t := &Octree{
		points:           points,
		maxPointsPerLeaf: maxPointsPerLeaf,
		minHalfExtent:    minHalfExtent,
	}
	if len(points) == 0 {
		return t
	}

	box := NewBBox(points)
	center := box.Min.Add(box.Max).Scale(0.5)
	half := math.Max(box.Delta.X, math.Max(box.Delta.Y, box.Delta.Z)) / 2
	if half < minHalfExtent {
		half = minHalfExtent
	}

	all := make([]int, len(points))
	for i := range all {
		all[i] = i
	}
	t.root = t.buildNode(center, half, all)
	return t
}

// buildNode partitions indices into octants until occupancy or resolution
// limits are reached.
func (t *Octree) buildNode(center Vector, halfExtent float64, indices []int) *octreeNode {
	n := &octreeNode{center: center, halfExtent: halfExtent}
	if len(indices) <= t.maxPointsPerLeaf || halfExtent/2 < t.minHalfExtent {
		n.indices = indices
		return n
	}

	var buckets [8][]int
	for _, i := range indices {
		o := octant(t.points[i], center)
		buckets[o] = append(buckets[o], i)
	}

	n.children = new([8]*octreeNode)
	quarter := halfExtent / 2
	for o := 0; o < 8; o++ {
		if len(buckets[o]) == 0 {
			continue
		}
		childCenter := NewPoint(
			center.X+signOf(o&1)*quarter,
			center.Y+signOf(o&2)*quarter,
			center.Z+signOf(o&4)*quarter,
		)
		n.children[o] = t.buildNode(childCenter, quarter, buckets[o])
	}
	return n
}

// octant indexes a child by the sign of (p - center) per axis: bit 0 for X,
// bit 1 for Y, bit 2 for Z.
func octant(p Point, center Vector) int {
	o := 0
	if p.X >= center.X {
		o |= 1
	}
	if p.Y >= center.Y {
		o |= 2
	}
	if p.Z >= center.Z {
		o |= 4
	}
	return o
}

func signOf(bit int) float64 {
	if bit != 0 {
		return 1
	}
	return -1
}

// Len returns the number of indexed points.
func (t *Octree) Len() int {
	return len(t.points)
}

// SearchNeighbors returns the indices of every indexed point inside the
// kernel of the given radius around center. Results carry no particular
// order. Queries on an empty tree return nil.
func (t *Octree) SearchNeighbors(center Point, radius float64, kernel Kernel) []int {
	if t.root == nil || radius < 0 {
		return nil
	}
	var out []int
	t.search(t.root, center, radius, kernel, &out)
	return out
}

func (t *Octree) search(n *octreeNode, center Point, radius float64, kernel Kernel, out *[]int) {
	// Prune nodes whose cube misses the kernel's axis-aligned envelope. All
	// three kernels are enclosed by the cube of side 2·radius around center.
	if math.Abs(n.center.X-center.X) > n.halfExtent+radius ||
		math.Abs(n.center.Y-center.Y) > n.halfExtent+radius ||
		math.Abs(n.center.Z-center.Z) > n.halfExtent+radius {
		return
	}

	if n.children == nil {
		for _, i := range n.indices {
			if inKernel(t.points[i], center, radius, kernel) {
				*out = append(*out, i)
			}
		}
		return
	}
	for _, c := range n.children {
		if c != nil {
			t.search(c, center, radius, kernel, out)
		}
	}
}

func inKernel(p, center Point, radius float64, kernel Kernel) bool {
	dx := p.X - center.X
	dy := p.Y - center.Y
	dz := p.Z - center.Z
	switch kernel {
	case KernelSphere:
		return dx*dx+dy*dy+dz*dz <= radius*radius
	case KernelCube:
		return math.Abs(dx) <= radius && math.Abs(dy) <= radius && math.Abs(dz) <= radius
	case KernelCylinder:
		return dx*dx+dy*dy <= radius*radius && math.Abs(dz) <= radius
	}
	return false
}
