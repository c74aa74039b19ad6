package lidar

import (
	"gonum.org/v1/gonum/mat"
)

// minNormalNeighbors is the smallest neighbourhood a surface normal can be
// estimated from; below it the point gets the zero normal.
const minNormalNeighbors = 3

// ComputeNormals estimates a unit surface normal for every point from the
// covariance of its spherical neighbourhood of the given radius. The normal
// is the eigenvector of the smallest eigenvalue of the 3x3 covariance
// matrix. Points whose neighbourhood is too small, or whose covariance
// cannot be factorized, get the zero vector. Sign is left unresolved;
// downstream comparisons fold angles into [0, π/2].
func ComputeNormals(points []Point, tree *Octree, radius float64) []Vector {
	normals := make([]Vector, len(points))
	for i := range points {
		neighbors := tree.SearchNeighbors(points[i], radius, KernelSphere)
		normals[i] = estimateNormal(points, neighbors)
	}
	return normals
}

func estimateNormal(points []Point, neighbors []int) Vector {
	if len(neighbors) < minNormalNeighbors {
		return Vector{}
	}

	var cx, cy, cz float64
	for _, i := range neighbors {
		cx += points[i].X
		cy += points[i].Y
		cz += points[i].Z
	}
	n := float64(len(neighbors))
	cx /= n
	cy /= n
	cz /= n

	var xx, xy, xz, yy, yz, zz float64
	for _, i := range neighbors {
		dx := points[i].X - cx
		dy := points[i].Y - cy
		dz := points[i].Z - cz
		xx += dx * dx
		xy += dx * dy
		xz += dx * dz
		yy += dy * dy
		yz += dy * dz
		zz += dz * dz
	}

	cov := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return Vector{}
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// EigenSym orders eigenvalues ascending, so column 0 spans the direction
	// of least variance: the surface normal.
	normal := NewPoint(vecs.At(0, 0), vecs.At(1, 0), vecs.At(2, 0))
	return normal.Normalize()
}

// MeanVector returns the arithmetic mean of vs re-normalized to unit
// length. Normals are direction-modulo-sign, so each vector is flipped
// into the hemisphere of the first nonzero one before averaging; otherwise
// two estimates of the same plane could cancel. An empty input yields the
// zero vector.
func MeanVector(vs []Vector) Vector {
	var sum, ref Vector
	for _, v := range vs {
		if ref.IsZero() {
			ref = v
		}
		if v.Dot(ref) < 0 {
			v = v.Scale(-1)
		}
		sum = sum.Add(v)
	}
	if len(vs) == 0 {
		return Vector{}
	}
	return sum.Scale(1 / float64(len(vs))).Normalize()
}
