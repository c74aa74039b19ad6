package lidar

import "sort"

// Face is a near-planar cluster of an object's points: a sorted,
// duplicate-free list of indices into the object's point buffer, the mean
// normal of those points, and a bounding box computed in the frame where
// that normal is rotated onto +Z. Box.Delta.X and Box.Delta.Y are the
// face's in-plane dimensions; Box.Delta.Z is its thickness.
type Face struct {
	Indices []int
	Normal  Vector
	Box     BBox
}

// Area returns the in-plane rectangle area of the face.
func (f Face) Area() float64 {
	return f.Box.Delta.X * f.Box.Delta.Y
}

// Thickness returns the face's extent along its own normal.
func (f Face) Thickness() float64 {
	return f.Box.Delta.Z
}

// ExtractFaces segments points into planar faces. Points must enter with
// unclassified cluster tags; the pass mutates them the same way the spatial
// pass does. A candidate joins the growing face when it is spatially within
// FaceRadius of a member and its normal agrees angularly with the face: the
// pair test bounds both the member-to-candidate and mean-to-candidate
// angles, and the stricter mean-only test admits candidates the pair test
// rejects. The face's mean normal is recomputed from all current members
// between expansion steps. Points without an estimable normal never seed nor
// join a face.
func ExtractFaces(points []Point, tree *Octree, normals []Vector, p Params) []Face {
	clusterID := 0
	var faces []Face

	for i := range points {
		if points[i].ClusterID != ClusterUnclassified || normals[i].IsZero() {
			continue
		}
		if face, ok := expandFace(points, tree, normals, i, clusterID, p); ok {
			faces = append(faces, face)
			clusterID++
		}
	}
	return faces
}

func expandFace(points []Point, tree *Octree, normals []Vector, centroid, clusterID int, p Params) (Face, bool) {
	_, seeds := faceNeighbors(points, tree, normals, centroid, normals[centroid], p)
	if len(seeds) < p.MinFacePoints {
		points[centroid].ClusterID = ClusterNoise
		return Face{}, false
	}

	members := make([]int, len(seeds))
	copy(members, seeds)
	memberNormals := make([]Vector, 0, len(seeds))

	queue := make([]int, 0, len(seeds))
	for _, i := range seeds {
		points[i].ClusterID = clusterID
		memberNormals = append(memberNormals, normals[i])
		if i != centroid {
			queue = append(queue, i)
		}
	}

	meanNormal := MeanVector(memberNormals)
	for qi := 0; qi < len(queue); qi++ {
		total, unclaimed := faceNeighbors(points, tree, normals, queue[qi], meanNormal, p)
		if total < p.MinFacePoints {
			continue
		}
		absorbed := false
		for _, i := range unclaimed {
			if points[i].ClusterID == ClusterUnclassified {
				queue = append(queue, i)
			}
			points[i].ClusterID = clusterID
			memberNormals = append(memberNormals, normals[i])
			members = append(members, i)
			absorbed = true
		}
		if absorbed {
			meanNormal = MeanVector(memberNormals)
		}
	}

	sort.Ints(members)
	return newFace(points, members, MeanVector(memberNormals)), true
}

// faceNeighbors filters the spatial neighbourhood of the point at index
// centroid by the angular coherence tests against meanNormal. It returns
// the count of coherent neighbours and the indices of the unclaimed ones.
func faceNeighbors(points []Point, tree *Octree, normals []Vector, centroid int, meanNormal Vector, p Params) (total int, unclaimed []int) {
	neighbors := tree.SearchNeighbors(points[centroid], p.FaceRadius, KernelSphere)
	for _, i := range neighbors {
		if normals[i].IsZero() {
			continue
		}
		pairTest := normals[centroid].Angle(normals[i]) <= p.MaxNormalAngle &&
			meanNormal.Angle(normals[i]) <= p.MaxMeanAngle
		meanOnlyTest := meanNormal.Angle(normals[i]) <= p.MaxMeanAngleSingle
		if !pairTest && !meanOnlyTest {
			continue
		}
		total++
		if points[i].ClusterID < 0 {
			unclaimed = append(unclaimed, i)
		}
	}
	return total, unclaimed
}

// newFace finalizes a face: the bounding box is taken after rotating the
// member points so the mean normal aligns with +Z.
func newFace(points []Point, members []int, normal Vector) Face {
	facePoints := make([]Point, len(members))
	for i, idx := range members {
		facePoints[i] = points[idx]
	}
	return Face{
		Indices: members,
		Normal:  normal,
		Box:     NewBBoxRotated(facePoints, RotationTo(normal)),
	}
}
