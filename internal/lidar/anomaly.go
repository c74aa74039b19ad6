package lidar

import (
	"math"
	"sort"
)

// Comparison holds the dimensional deltas between two bounding geometries,
// model minus object, and whether every delta fell within tolerance. For
// face comparisons the X/Y deltas are taken after sorting each face's two
// in-plane extents, so a face matched against its own quarter-turn reads as
// identical.
type Comparison struct {
	DeltaX     float64
	DeltaY     float64
	DeltaZ     float64
	DeltaAngle float64
	Similar    bool
}

// FaceComparison pairs one object face with one model face. An index of -1
// on either side marks a face the matcher left unpaired; such entries are
// never similar.
type FaceComparison struct {
	ObjectFace int
	ModelFace  int
	ObjectArea float64
	ModelArea  float64
	Comparison
}

// AnomalyReport is the outcome of comparing an object scan against a model.
// Similar is true only when every matched pair is individually similar and
// the two have the same number of faces, all matched.
type AnomalyReport struct {
	Similar           bool
	GeneralComparison Comparison
	DeltaFaces        int
	FaceComparisons   []FaceComparison
}

// Compare matches the faces of obj against those of model and aggregates
// the per-face comparisons into an anomaly report. Matching is greedy: in
// descending order of object face area, each object face claims the
// unclaimed model face at the smallest dimensional distance. Greedy
// matching is a heuristic; CompareOptimal substitutes an optimal assignment
// under the same report semantics.
func Compare(obj, model *CharacterizedObject, tol Tolerances) AnomalyReport {
	return report(obj, model, tol, matchGreedy(obj.Faces, model.Faces))
}

// CompareOptimal is Compare with a minimum-total-distance assignment
// computed by the Hungarian algorithm instead of the greedy heuristic.
func CompareOptimal(obj, model *CharacterizedObject, tol Tolerances) AnomalyReport {
	return report(obj, model, tol, matchOptimal(obj.Faces, model.Faces))
}

// report builds the aggregate from an assignment of object faces to model
// faces (-1 for unmatched).
func report(obj, model *CharacterizedObject, tol Tolerances, assignment []int) AnomalyReport {
	nO := len(obj.Faces)
	nM := len(model.Faces)

	comparisons := make([]FaceComparison, 0, nO+nM)
	matchedModel := make([]bool, nM)
	allSimilar := nO > 0 && nM > 0

	for i, j := range assignment {
		if j < 0 {
			continue
		}
		matchedModel[j] = true
		fc := compareFaces(i, j, obj.Faces[i], model.Faces[j], tol)
		comparisons = append(comparisons, fc)
		if !fc.Similar {
			allSimilar = false
		}
	}

	// Unmatched faces still appear in the report, with the other side
	// absent, so a reader sees exactly what failed to pair.
	for i, j := range assignment {
		if j < 0 {
			comparisons = append(comparisons, FaceComparison{
				ObjectFace: i,
				ModelFace:  -1,
				ObjectArea: obj.Faces[i].Area(),
			})
			allSimilar = false
		}
	}
	for j, matched := range matchedModel {
		if !matched {
			comparisons = append(comparisons, FaceComparison{
				ObjectFace: -1,
				ModelFace:  j,
				ModelArea:  model.Faces[j].Area(),
			})
			allSimilar = false
		}
	}

	return AnomalyReport{
		Similar:           allSimilar && nO == nM,
		GeneralComparison: compareBoxes(obj.Box, model.Box, tol),
		DeltaFaces:        nM - nO,
		FaceComparisons:   comparisons,
	}
}

// compareFaces builds the per-face record for one matched pair.
func compareFaces(oi, mi int, o, m Face, tol Tolerances) FaceComparison {
	oMin, oMaj := sortedExtents(o)
	mMin, mMaj := sortedExtents(m)
	cmp := Comparison{
		DeltaX:     mMin - oMin,
		DeltaY:     mMaj - oMaj,
		DeltaZ:     m.Thickness() - o.Thickness(),
		DeltaAngle: m.Normal.Angle(o.Normal),
	}
	cmp.Similar = math.Abs(cmp.DeltaX) <= tol.Extent &&
		math.Abs(cmp.DeltaY) <= tol.Extent &&
		math.Abs(cmp.DeltaZ) <= tol.Thickness &&
		cmp.DeltaAngle <= tol.Angle
	return FaceComparison{
		ObjectFace: oi,
		ModelFace:  mi,
		ObjectArea: o.Area(),
		ModelArea:  m.Area(),
		Comparison: cmp,
	}
}

// compareBoxes builds the general comparison over the two overall bounding
// boxes. Extents are compared axis by axis; boxes carry no orientation, so
// the angle delta is not meaningful here and stays zero.
func compareBoxes(o, m BBox, tol Tolerances) Comparison {
	cmp := Comparison{
		DeltaX: m.Delta.X - o.Delta.X,
		DeltaY: m.Delta.Y - o.Delta.Y,
		DeltaZ: m.Delta.Z - o.Delta.Z,
	}
	cmp.Similar = math.Abs(cmp.DeltaX) <= tol.Extent &&
		math.Abs(cmp.DeltaY) <= tol.Extent &&
		math.Abs(cmp.DeltaZ) <= tol.Extent
	return cmp
}

// sortedExtents returns a face's two in-plane extents in ascending order,
// making comparisons robust to the quarter-turn ambiguity of the rotated
// box frame.
func sortedExtents(f Face) (min, maj float64) {
	if f.Box.Delta.X <= f.Box.Delta.Y {
		return f.Box.Delta.X, f.Box.Delta.Y
	}
	return f.Box.Delta.Y, f.Box.Delta.X
}

// faceDistance is the matching cost between two faces: the sum of absolute
// deltas over the sorted in-plane extents and the thickness.
func faceDistance(o, m Face) float64 {
	oMin, oMaj := sortedExtents(o)
	mMin, mMaj := sortedExtents(m)
	return math.Abs(mMin-oMin) + math.Abs(mMaj-oMaj) + math.Abs(m.Thickness()-o.Thickness())
}

// matchGreedy assigns object faces to model faces in descending order of
// object face area; each takes the closest model face still unclaimed.
func matchGreedy(objFaces, modelFaces []Face) []int {
	assignment := make([]int, len(objFaces))
	for i := range assignment {
		assignment[i] = -1
	}

	order := make([]int, len(objFaces))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return objFaces[order[a]].Area() > objFaces[order[b]].Area()
	})

	claimed := make([]bool, len(modelFaces))
	for _, i := range order {
		best := -1
		bestDist := math.Inf(1)
		for j := range modelFaces {
			if claimed[j] {
				continue
			}
			if d := faceDistance(objFaces[i], modelFaces[j]); d < bestDist {
				best = j
				bestDist = d
			}
		}
		if best >= 0 {
			claimed[best] = true
			assignment[i] = best
		}
	}
	return assignment
}

// matchOptimal assigns object faces to model faces minimizing total
// dimensional distance via the Hungarian algorithm.
func matchOptimal(objFaces, modelFaces []Face) []int {
	if len(objFaces) == 0 {
		return nil
	}
	cost := make([][]float64, len(objFaces))
	for i := range cost {
		cost[i] = make([]float64, len(modelFaces))
		for j := range modelFaces {
			cost[i][j] = faceDistance(objFaces[i], modelFaces[j])
		}
	}
	return HungarianAssign(cost)
}
