package splitgraph

import (
	m "github.com/playkostudios/model-splitter/pkg/math"
)

// Transform is a local translation/rotation/scale triple.
type Transform struct {
	Translation [3]float64 `json:"translation"`
	Rotation    [4]float64 `json:"rotation"`
	Scale       [3]float64 `json:"scale"`
}

// IdentityTransform returns the no-op transform.
func IdentityTransform() Transform {
	return Transform{Rotation: [4]float64{0, 0, 0, 1}, Scale: [3]float64{1, 1, 1}}
}

// FromMatrix decomposes a TRS matrix into a Transform.
func FromMatrix(mat m.Mat4) Transform {
	t, r, s := mat.Decompose()
	return Transform{Translation: t.Array(), Rotation: r.Array(), Scale: s.Array()}
}

// Matrix recomposes the transform.
func (t Transform) Matrix() m.Mat4 {
	return m.Compose(m.V3(t.Translation), m.Q(t.Rotation), m.V3(t.Scale))
}

// Instance places one source (or a purely structural grouping node,
// when Source is nil) under a parent instance. Parents always precede
// their children in the instance list.
type Instance struct {
	Source *int `json:"source"`
	Parent *int `json:"parent"`
	Transform
	// MaxBounds is the symmetric extent containing this instance and
	// all its children, filled by AggregateBounds.
	MaxBounds *[3]float64 `json:"maxBounds,omitempty"`
}

// Group lists extracted part files and the instances that reassemble
// them into the original scene.
type Group struct {
	Sources   []string   `json:"sources"`
	Instances []Instance `json:"instances"`
}

// AggregateBounds fills every instance's maxBounds bottom-up. A leaf's
// extent is the symmetric extent of its source's bounding box; a parent
// is grown to contain every corner of each child's box transformed by
// the child's local transform.
func (g *Group) AggregateBounds(sourceBounds []m.AABB) {
	children := make(map[int][]int)
	var roots []int
	for i, inst := range g.Instances {
		if inst.Parent == nil {
			roots = append(roots, i)
		} else {
			children[*inst.Parent] = append(children[*inst.Parent], i)
		}
	}

	var aggregate func(i int) m.AABB
	aggregate = func(i int) m.AABB {
		inst := &g.Instances[i]

		var box m.AABB
		set := false
		if inst.Source != nil && !sourceBounds[*inst.Source].IsZero() {
			src := sourceBounds[*inst.Source]
			half := src.Max.Abs().Max(src.Min.Abs())
			box = m.AABB{Min: half.Scale(-1), Max: half}
			set = true
		}

		for _, ci := range children[i] {
			childBox := aggregate(ci)
			local := g.Instances[ci].Matrix()
			// Rotation can swap which corner is extremal, so every
			// corner is transformed and folded.
			for _, corner := range childBox.Corners() {
				box = box.ExtendPoint(local.TransformPoint(corner), set)
				set = true
			}
		}

		// Symmetric about the instance origin, so the extent is the
		// furthest reach on each axis, not half the box size.
		half := box.Max.Abs().Max(box.Min.Abs())
		ext := half.Array()
		inst.MaxBounds = &ext
		return m.AABB{Min: half.Scale(-1), Max: half}
	}

	for _, r := range roots {
		aggregate(r)
	}
}
