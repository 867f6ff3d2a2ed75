package splitgraph

import (
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/playkostudios/model-splitter/internal/errs"
	m "github.com/playkostudios/model-splitter/pkg/math"
)

// documentBounds folds every mesh-primitive vertex position of the
// default scene through its node's world matrix. Indexed primitives
// only contribute referenced vertices.
func documentBounds(doc *gltf.Document) (m.AABB, error) {
	scene, err := defaultScene(doc)
	if err != nil {
		return m.AABB{}, err
	}

	var box m.AABB
	set := false
	var walk func(node int, parent m.Mat4) error
	walk = func(node int, parent m.Mat4) error {
		n := doc.Nodes[node]
		world := parent.Mul(localMatrix(n))
		if n.Mesh != nil {
			for _, p := range doc.Meshes[*n.Mesh].Primitives {
				if err := extendPrimitive(doc, p, world, &box, &set); err != nil {
					return err
				}
			}
		}
		for _, c := range n.Children {
			if err := walk(c, world); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range scene.Nodes {
		if err := walk(root, m.Identity()); err != nil {
			return m.AABB{}, err
		}
	}
	return box, nil
}

func extendPrimitive(doc *gltf.Document, p *gltf.Primitive, world m.Mat4, box *m.AABB, set *bool) error {
	posAcc, ok := p.Attributes["POSITION"]
	if !ok {
		return nil
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posAcc], nil)
	if err != nil {
		return errs.Invalidf("unreadable vertex positions: %v", err)
	}

	extend := func(v [3]float32) {
		pt := world.TransformPoint(m.Vec3{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])})
		*box = box.ExtendPoint(pt, *set)
		*set = true
	}

	if p.Indices == nil {
		for _, v := range positions {
			extend(v)
		}
		return nil
	}
	indices, err := modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil)
	if err != nil {
		return errs.Invalidf("unreadable primitive indices: %v", err)
	}
	for _, idx := range indices {
		if int(idx) >= len(positions) {
			return errs.Invalidf("primitive index %d outside vertex range %d", idx, len(positions))
		}
		extend(positions[idx])
	}
	return nil
}
