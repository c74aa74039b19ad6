package lidar

import "sort"

// Clusters runs density-based spatial clustering over points using tree for
// neighbourhood queries. Every visited point's ClusterID is mutated: members
// get their cluster index, rejected points get ClusterNoise. A point marked
// noise may still be absorbed later when some core point's neighbourhood
// reaches it. Each returned cluster is a sorted list of indices into points.
//
// Iteration follows array order, so cluster numbering is deterministic for a
// fixed input order.
func Clusters(points []Point, tree *Octree, radius float64, minPoints int) [][]int {
	clusterID := 0
	var clusters [][]int

	for i := range points {
		if points[i].ClusterID != ClusterUnclassified {
			continue
		}
		if members, ok := expandCluster(points, tree, i, clusterID, radius, minPoints); ok {
			sort.Ints(members)
			clusters = append(clusters, members)
			clusterID++
		}
	}
	return clusters
}

// expandCluster grows a cluster from the seed point at index centroid using
// a non-recursive worklist. It reports false, marking the seed as noise,
// when fewer than minPoints of the seed's neighbours are still unclaimed.
func expandCluster(points []Point, tree *Octree, centroid, clusterID int, radius float64, minPoints int) ([]int, bool) {
	_, seeds := clusterNeighbors(points, tree, centroid, radius)
	if len(seeds) < minPoints {
		points[centroid].ClusterID = ClusterNoise
		return nil, false
	}

	members := make([]int, len(seeds))
	copy(members, seeds)

	// Claim the seeds and drop the centroid itself from the worklist.
	queue := make([]int, 0, len(seeds))
	for _, i := range seeds {
		points[i].ClusterID = clusterID
		if i != centroid {
			queue = append(queue, i)
		}
	}

	// The queue grows while it is walked; neighbours of every core point are
	// absorbed, re-tagging previously rejected noise along the way.
	for qi := 0; qi < len(queue); qi++ {
		total, unclaimed := clusterNeighbors(points, tree, queue[qi], radius)
		if total < minPoints {
			continue // border point: belongs to the cluster, expands nothing
		}
		for _, i := range unclaimed {
			if points[i].ClusterID == ClusterUnclassified {
				queue = append(queue, i)
			}
			points[i].ClusterID = clusterID
			members = append(members, i)
		}
	}
	return members, true
}

// clusterNeighbors returns the size of the full spherical neighbourhood of
// the point at index centroid together with the indices of those neighbours
// not yet claimed by any cluster (unclassified or noise).
func clusterNeighbors(points []Point, tree *Octree, centroid int, radius float64) (total int, unclaimed []int) {
	neighbors := tree.SearchNeighbors(points[centroid], radius, KernelSphere)
	for _, i := range neighbors {
		if points[i].ClusterID < 0 {
			unclaimed = append(unclaimed, i)
		}
	}
	return len(neighbors), unclaimed
}

// ResetClusterIDs returns every point to the unclassified state, as required
// between the spatial pass and the face-extraction pass.
func ResetClusterIDs(points []Point) {
	for i := range points {
		points[i].ClusterID = ClusterUnclassified
	}
}
