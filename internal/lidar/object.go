package lidar

// CharacterizedObject is the result of one characterization cycle: the
// retained foreground points, the planar faces extracted from them, and the
// object's overall axis-aligned bounding box. The object owns its point
// buffer; face index lists refer into it.
type CharacterizedObject struct {
	Points []Point
	Faces  []Face
	Box    BBox
}

// Model is a previously characterized object kept as the reference instance
// new scans are compared against.
type Model = CharacterizedObject

// Characterize runs the full analysis over an already captured foreground
// buffer: spatial clustering, largest-cluster selection, normal estimation,
// face extraction, and bounding geometry. It reports false when no cluster
// reaches the density threshold. The buffer's cluster tags are consumed;
// the returned object owns a fresh point buffer.
func Characterize(buffer []Point, p Params) (*CharacterizedObject, bool) {
	if len(buffer) == 0 {
		return nil, false
	}

	ResetClusterIDs(buffer)
	tree := NewOctreeWithLimits(buffer, p.MaxPointsPerLeaf, p.MinNodeHalfExtent)
	clusters := Clusters(buffer, tree, p.ClusterRadius, p.MinClusterPoints)
	if len(clusters) == 0 {
		return nil, false
	}

	// The object proper is the largest cluster; earlier clusters win ties so
	// selection is deterministic for a fixed input order.
	best := 0
	for i, c := range clusters[1:] {
		if len(c) > len(clusters[best]) {
			best = i + 1
		}
	}

	points := make([]Point, len(clusters[best]))
	for i, idx := range clusters[best] {
		points[i] = buffer[idx]
		points[i].ClusterID = ClusterUnclassified
	}

	faceTree := NewOctreeWithLimits(points, p.MaxPointsPerLeaf, p.MinNodeHalfExtent)
	normals := ComputeNormals(points, faceTree, p.NormalRadius)
	faces := ExtractFaces(points, faceTree, normals, p)

	return &CharacterizedObject{
		Points: points,
		Faces:  faces,
		Box:    NewBBox(points),
	}, true
}
