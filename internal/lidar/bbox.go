package lidar

// BBox is an axis-aligned bounding box described by its two extreme corners
// and the cached extent Delta = Max - Min.
type BBox struct {
	Min   Point
	Max   Point
	Delta Vector
}

// NewBBox computes the axis-aligned bounding box of points. An empty input
// yields the zero box.
func NewBBox(points []Point) BBox {
	return NewBBoxRotated(points, IdentityRotation)
}

// NewBBoxRotated computes the axis-aligned bounding box of points after
// rotating each one by rot. Face characterization uses this with the rotation
// that maps the face normal onto +Z, so the box extents become the face's
// in-plane dimensions plus its thickness.
func NewBBoxRotated(points []Point, rot RotationMatrix) BBox {
	if len(points) == 0 {
		return BBox{}
	}
	min := points[0].Rotate(rot)
	max := min
	for _, p := range points[1:] {
		r := p.Rotate(rot)
		if r.X < min.X {
			min.X = r.X
		} else if r.X > max.X {
			max.X = r.X
		}
		if r.Y < min.Y {
			min.Y = r.Y
		} else if r.Y > max.Y {
			max.Y = r.Y
		}
		if r.Z < min.Z {
			min.Z = r.Z
		} else if r.Z > max.Z {
			max.Z = r.Z
		}
	}
	return NewBBoxMinMax(min, max)
}

// NewBBoxMinMax builds a box from explicit corners.
func NewBBoxMinMax(min, max Point) BBox {
	return BBox{Min: min, Max: max, Delta: max.Sub(min)}
}

// NewBBoxExtents builds a box anchored at the origin with the given extents.
func NewBBoxExtents(dx, dy, dz float64) BBox {
	return NewBBoxMinMax(NewPoint(0, 0, 0), NewPoint(dx, dy, dz))
}

// Volume returns dx·dy·dz.
func (b BBox) Volume() float64 {
	return b.Delta.X * b.Delta.Y * b.Delta.Z
}

// Less orders boxes by volume.
func (b BBox) Less(o BBox) bool {
	return b.Volume() < o.Volume()
}
