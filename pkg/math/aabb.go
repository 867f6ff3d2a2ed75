package math

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec3
}

// ExtendPoint grows the box to contain p. The first point extends an
// unset box to that point exactly.
func (b AABB) ExtendPoint(p Vec3, set bool) AABB {
	if !set {
		return AABB{Min: p, Max: p}
	}
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// ExtendBox grows the box to contain other.
func (b AABB) ExtendBox(other AABB) AABB {
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Center returns the box midpoint.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// HalfExtent returns the symmetric extent: the largest absolute corner
// distance from the origin on each axis.
func (b AABB) HalfExtent() Vec3 {
	return b.Min.Abs().Max(b.Max.Abs())
}

// Corners returns all eight corner points.
func (b AABB) Corners() [8]Vec3 {
	return [8]Vec3{
		{b.Min.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Max.Z},
		{b.Max.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Max.Y, b.Min.Z},
		{b.Max.X, b.Max.Y, b.Max.Z},
	}
}

// IsZero reports whether the box is the all-zero box.
func (b AABB) IsZero() bool {
	return b.Min == (Vec3{}) && b.Max == (Vec3{})
}
