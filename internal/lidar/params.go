package lidar

import "math"

// Params collects the tunables of the characterization pipeline. All
// distances are millimetres and all angles radians. Zero values are not
// meaningful; start from DefaultParams and override.
type Params struct {
	// Spatial clustering (object detection).
	ClusterRadius    float64
	MinClusterPoints int

	// Normal-coherent clustering (face extraction).
	FaceRadius         float64
	MinFacePoints      int
	NormalRadius       float64
	MaxNormalAngle     float64 // pair test: seed normal vs candidate
	MaxMeanAngle       float64 // pair test: running mean vs candidate
	MaxMeanAngleSingle float64 // mean-only test, stricter

	// Octree subdivision.
	MaxPointsPerLeaf  int
	MinNodeHalfExtent float64
}

// DefaultParams returns the tuning used for tabletop-scale objects scanned
// at a few millimetres of point pitch.
func DefaultParams() Params {
	return Params{
		ClusterRadius:      30,
		MinClusterPoints:   10,
		FaceRadius:         15,
		MinFacePoints:      9,
		NormalRadius:       10,
		MaxNormalAngle:     20 * math.Pi / 180,
		MaxMeanAngle:       20 * math.Pi / 180,
		MaxMeanAngleSingle: 10 * math.Pi / 180,
		MaxPointsPerLeaf:   DefaultMaxPointsPerLeaf,
		MinNodeHalfExtent:  DefaultMinNodeHalfExtent,
	}
}

// Tolerances bound the per-face deltas the anomaly comparator will still
// call similar.
type Tolerances struct {
	Extent    float64 // mm, per in-plane extent
	Thickness float64 // mm
	Angle     float64 // radians, between mean normals
}

// DefaultTolerances returns comparison bounds matched to DefaultParams.
func DefaultTolerances() Tolerances {
	return Tolerances{
		Extent:    10,
		Thickness: 5,
		Angle:     15 * math.Pi / 180,
	}
}
