package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/anomaly.report/internal/lidar"
)

// TuningConfig is the on-disk tuning file for the characterization
// pipeline. Every field is a pointer so a partial file overrides only the
// parameters it names; omitted fields keep their defaults. Distances are
// millimetres and angles radians, matching the runtime parameter structs.
type TuningConfig struct {
	// Spatial clustering
	ClusterRadiusMM  *float64 `json:"cluster_radius_mm,omitempty"`
	MinClusterPoints *int     `json:"min_cluster_points,omitempty"`

	// Face extraction
	FaceRadiusMM          *float64 `json:"face_radius_mm,omitempty"`
	MinFacePoints         *int     `json:"min_face_points,omitempty"`
	NormalRadiusMM        *float64 `json:"normal_radius_mm,omitempty"`
	MaxNormalAngleRad     *float64 `json:"max_normal_angle_rad,omitempty"`
	MaxMeanAngleRad       *float64 `json:"max_mean_angle_rad,omitempty"`
	MaxMeanAngleSingleRad *float64 `json:"max_mean_angle_single_rad,omitempty"`

	// Octree subdivision
	OctreeMaxPointsPerLeaf *int     `json:"octree_max_points_per_leaf,omitempty"`
	OctreeMinHalfExtentMM  *float64 `json:"octree_min_half_extent_mm,omitempty"`

	// Framing and ingest
	ObjectFrameMillis     *int     `json:"object_frame_millis,omitempty"`
	BackgroundFrameMillis *int     `json:"background_frame_millis,omitempty"`
	MinReflectivity       *int     `json:"min_reflectivity,omitempty"`
	BackgroundDistanceM   *float64 `json:"background_distance_m,omitempty"`

	// Anomaly comparison tolerances
	ExtentToleranceMM    *float64 `json:"extent_tolerance_mm,omitempty"`
	ThicknessToleranceMM *float64 `json:"thickness_tolerance_mm,omitempty"`
	AngleToleranceRad    *float64 `json:"angle_tolerance_rad,omitempty"`
}

// maxConfigFileSize bounds tuning files; anything larger is rejected as
// almost certainly not a tuning file.
const maxConfigFileSize = 1 * 1024 * 1024

// Load reads a TuningConfig from a JSON file. Fields omitted from the file
// stay nil, so partial configs are safe to apply over defaults.
func Load(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg TuningConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", cleanPath, err)
	}
	return &cfg, nil
}

// ApplyParams overlays the set fields of the config onto p.
func (c *TuningConfig) ApplyParams(p *lidar.Params) {
	if c.ClusterRadiusMM != nil {
		p.ClusterRadius = *c.ClusterRadiusMM
	}
	if c.MinClusterPoints != nil {
		p.MinClusterPoints = *c.MinClusterPoints
	}
	if c.FaceRadiusMM != nil {
		p.FaceRadius = *c.FaceRadiusMM
	}
	if c.MinFacePoints != nil {
		p.MinFacePoints = *c.MinFacePoints
	}
	if c.NormalRadiusMM != nil {
		p.NormalRadius = *c.NormalRadiusMM
	}
	if c.MaxNormalAngleRad != nil {
		p.MaxNormalAngle = *c.MaxNormalAngleRad
	}
	if c.MaxMeanAngleRad != nil {
		p.MaxMeanAngle = *c.MaxMeanAngleRad
	}
	if c.MaxMeanAngleSingleRad != nil {
		p.MaxMeanAngleSingle = *c.MaxMeanAngleSingleRad
	}
	if c.OctreeMaxPointsPerLeaf != nil {
		p.MaxPointsPerLeaf = *c.OctreeMaxPointsPerLeaf
	}
	if c.OctreeMinHalfExtentMM != nil {
		p.MinNodeHalfExtent = *c.OctreeMinHalfExtentMM
	}
}

// ApplyTolerances overlays the set fields of the config onto t.
func (c *TuningConfig) ApplyTolerances(t *lidar.Tolerances) {
	if c.ExtentToleranceMM != nil {
		t.Extent = *c.ExtentToleranceMM
	}
	if c.ThicknessToleranceMM != nil {
		t.Thickness = *c.ThicknessToleranceMM
	}
	if c.AngleToleranceRad != nil {
		t.Angle = *c.AngleToleranceRad
	}
}

// ApplyCharacterizer overlays the framing and ingest fields onto an already
// constructed characterizer.
func (c *TuningConfig) ApplyCharacterizer(ch *lidar.Characterizer) {
	if c.ObjectFrameMillis != nil {
		ch.SetObjFrame(uint32(*c.ObjectFrameMillis))
	}
	if c.BackgroundFrameMillis != nil {
		ch.SetBackFrame(uint32(*c.BackgroundFrameMillis))
	}
	if c.MinReflectivity != nil {
		ch.SetMinReflectivity(uint8(*c.MinReflectivity))
	}
	if c.BackgroundDistanceM != nil {
		ch.SetBackDistance(*c.BackgroundDistanceM)
	}
}
