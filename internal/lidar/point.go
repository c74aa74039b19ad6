package lidar

import (
	"fmt"
	"math"
)

// Cluster tag sentinels carried on each point during a DBSCAN pass.
// Negative values are transient or terminal markers; a nonnegative value is a
// final cluster index. Only the DBSCAN engine writes these during a pass.
const (
	ClusterUnclassified = -1 // not yet visited
	ClusterCore         = -2 // transitional, never a final state
	ClusterBorder       = -3 // transitional, never a final state
	ClusterNoise        = -4 // rejected by DBSCAN
)

// pointEqualEpsilon is the component-wise tolerance for point equality.
const pointEqualEpsilon = 2.220446049250313e-16 // 64-bit machine epsilon

// Point is a position in the sensor frame, in millimetres, plus the cluster
// tag DBSCAN uses as its visited/assigned mark.
type Point struct {
	X, Y, Z   float64
	ClusterID int
}

// Vector is a direction or displacement; it shares the Point representation
// so that positions and normals move through the same arithmetic.
type Vector = Point

// NewPoint returns a point at (x, y, z) with an unclassified cluster tag.
func NewPoint(x, y, z float64) Point {
	return Point{X: x, Y: y, Z: z, ClusterID: ClusterUnclassified}
}

// Equal reports whether p and q have the same coordinates to within machine
// epsilon per component. Cluster tags are ignored.
func (p Point) Equal(q Point) bool {
	return math.Abs(p.X-q.X) <= pointEqualEpsilon &&
		math.Abs(p.Y-q.Y) <= pointEqualEpsilon &&
		math.Abs(p.Z-q.Z) <= pointEqualEpsilon
}

// Add returns the component-wise sum p + q.
func (p Point) Add(q Point) Point {
	return NewPoint(p.X+q.X, p.Y+q.Y, p.Z+q.Z)
}

// Sub returns the component-wise difference p - q.
func (p Point) Sub(q Point) Point {
	return NewPoint(p.X-q.X, p.Y-q.Y, p.Z-q.Z)
}

// Scale returns p with every component multiplied by s.
func (p Point) Scale(s float64) Point {
	return NewPoint(p.X*s, p.Y*s, p.Z*s)
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Norm returns the Euclidean length of p treated as a vector.
func (p Point) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Dot returns the scalar product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y + p.Z*q.Z
}

// Cross returns the vector product p × q.
func (p Point) Cross(q Point) Point {
	return NewPoint(
		p.Y*q.Z-p.Z*q.Y,
		p.Z*q.X-p.X*q.Z,
		p.X*q.Y-p.Y*q.X,
	)
}

// IsZero reports whether p is the zero vector, the sentinel for "no normal
// could be estimated here".
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0
}

// Normalize returns p scaled to unit length, or the zero vector when p has
// no length to normalize.
func (p Point) Normalize() Point {
	n := p.Norm()
	if n == 0 {
		return NewPoint(0, 0, 0)
	}
	return p.Scale(1 / n)
}

// Angle returns the separation between p and q in radians, folded into
// [0, π/2]. Normal estimation leaves the sign of a normal unresolved, so
// every angular comparison in the pipeline treats direction modulo sign.
func (p Point) Angle(q Point) float64 {
	np := p.Norm()
	nq := q.Norm()
	if np == 0 || nq == 0 {
		return 0
	}
	cos := math.Abs(p.Dot(q)) / (np * nq)
	if cos > 1 {
		cos = 1
	}
	return math.Acos(cos)
}

// Rotate returns p rotated about the origin by the row-major matrix m.
func (p Point) Rotate(m RotationMatrix) Point {
	return NewPoint(
		m[0]*p.X+m[1]*p.Y+m[2]*p.Z,
		m[3]*p.X+m[4]*p.Y+m[5]*p.Z,
		m[6]*p.X+m[7]*p.Y+m[8]*p.Z,
	)
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", p.X, p.Y, p.Z)
}

// RotationMatrix is a 3x3 rotation in row-major order:
// [m00,m01,m02, m10,m11,m12, m20,m21,m22].
type RotationMatrix [9]float64

// IdentityRotation is the no-op rotation.
var IdentityRotation = RotationMatrix{1, 0, 0, 0, 1, 0, 0, 0, 1}

// RotationTo builds the rotation that maps the unit vector n onto the +Z
// axis, using the Rodrigues formula. Because normals are sign-ambiguous, n
// and -n produce rotations that differ only by a half-turn about an in-plane
// axis, which leaves axis-aligned extents unchanged downstream.
func RotationTo(n Vector) RotationMatrix {
	n = n.Normalize()
	if n.IsZero() {
		return IdentityRotation
	}
	z := NewPoint(0, 0, 1)
	axis := n.Cross(z)
	s := axis.Norm()
	c := n.Dot(z)
	if s < 1e-12 {
		if c > 0 {
			return IdentityRotation
		}
		// n is anti-parallel to +Z: half-turn about X.
		return RotationMatrix{1, 0, 0, 0, -1, 0, 0, 0, -1}
	}
	axis = axis.Scale(1 / s)
	// R = I + sin(θ)K + (1-cos(θ))K², with K the cross-product matrix of axis.
	k := RotationMatrix{
		0, -axis.Z, axis.Y,
		axis.Z, 0, -axis.X,
		-axis.Y, axis.X, 0,
	}
	k2 := k.mul(k)
	var r RotationMatrix
	for i := 0; i < 9; i++ {
		r[i] = IdentityRotation[i] + s*k[i] + (1-c)*k2[i]
	}
	return r
}

func (m RotationMatrix) mul(o RotationMatrix) RotationMatrix {
	var r RotationMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i*3+j] = m[i*3]*o[j] + m[i*3+1]*o[3+j] + m[i*3+2]*o[6+j]
		}
	}
	return r
}
