package splitgraph

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/playkostudios/model-splitter/internal/errs"
	"github.com/playkostudios/model-splitter/internal/surgeon"
	m "github.com/playkostudios/model-splitter/pkg/math"
)

// Options controls how a scene is cut into parts.
type Options struct {
	// Depth selects the node depth at which children of the default
	// scene become standalone parts. Zero disables splitting.
	Depth         int
	ResetPosition bool
	ResetRotation bool
	ResetScale    bool
}

// Part is one extracted subtree with its own pruned document.
type Part struct {
	Name string
	Doc  *gltf.Document
	// Transform is the root transform the part was extracted with,
	// with reset components restored to their defaults.
	Transform Transform
	Bounds    m.AABB
}

var identityMatrix = [16]float64{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

func nodeTRS(n *gltf.Node) (t m.Vec3, r m.Quat, s m.Vec3) {
	if n.Matrix != identityMatrix && n.Matrix != ([16]float64{}) {
		return m.Mat4(n.Matrix).Decompose()
	}
	t = m.V3(n.Translation)
	r = m.Q(n.Rotation)
	if r == (m.Quat{}) {
		r = m.QuatIdentity()
	}
	s = m.V3(n.Scale)
	if s == (m.Vec3{}) {
		s = m.V3([3]float64{1, 1, 1})
	}
	return t, r, s
}

func localMatrix(n *gltf.Node) m.Mat4 {
	t, r, s := nodeTRS(n)
	return m.Compose(t, r, s)
}

func setNodeTRS(n *gltf.Node, t m.Vec3, r m.Quat, s m.Vec3) {
	n.Matrix = identityMatrix
	n.Translation = t.Array()
	n.Rotation = r.Normalize().Array()
	n.Scale = s.Array()
}

// Split cuts the document's default scene into parts at opts.Depth and
// detects structurally duplicate subtrees, emitting one part per unique
// subtree plus an instance record for every occurrence. At depth zero a
// single unnamed part covering the whole model is returned, with reset
// flags applied to the scene's root nodes.
func Split(doc *gltf.Document, opts Options, log *zap.SugaredLogger) ([]Part, []Instance, error) {
	scene, err := defaultScene(doc)
	if err != nil {
		return nil, nil, err
	}

	mask := resetMask{position: opts.ResetPosition, rotation: opts.ResetRotation, scale: opts.ResetScale}

	if opts.Depth == 0 {
		for _, root := range scene.Nodes {
			applyReset(doc.Nodes[root], mask)
		}
		return []Part{{Doc: doc, Transform: IdentityTransform()}}, nil, nil
	}

	dedupeMeshes(doc)

	targets := collectTargets(doc, scene, opts.Depth)
	if len(targets) == 0 {
		return nil, nil, errs.Invalidf("no nodes at depth %d to split", opts.Depth)
	}

	var parts []Part
	instances := []Instance{{Parent: nil, Transform: IdentityTransform()}}
	names := make(map[string]int)
	hashes := make(map[uint64][]int) // subtree hash -> part indices
	partNodes := make([]int, 0, len(targets))

	for _, tgt := range targets {
		sig := subtreeHash(doc, tgt.node, mask)

		partIdx := -1
		for _, cand := range hashes[sig] {
			if subtreesEqual(doc, partNodes[cand], tgt.node, mask) {
				partIdx = cand
				break
			}
		}

		if partIdx == -1 {
			part, err := extractPart(doc, tgt, mask, names, log)
			if err != nil {
				return nil, nil, err
			}
			partIdx = len(parts)
			parts = append(parts, part)
			partNodes = append(partNodes, tgt.node)
			hashes[sig] = append(hashes[sig], partIdx)
		} else {
			log.Debugw("duplicate subtree folded into instance",
				"node", nodeLabel(doc.Nodes[tgt.node], tgt.node),
				"part", parts[partIdx].Name)
		}

		instances = append(instances, instanceFor(doc, tgt, parts[partIdx], partIdx))
	}

	return parts, instances, nil
}

func defaultScene(doc *gltf.Document) (*gltf.Scene, error) {
	idx := 0
	if doc.Scene != nil {
		idx = *doc.Scene
	}
	if idx < 0 || idx >= len(doc.Scenes) {
		return nil, errs.Invalidf("document has no usable scene")
	}
	return doc.Scenes[idx], nil
}

func applyReset(n *gltf.Node, mask resetMask) {
	t, r, s := nodeTRS(n)
	if mask.position {
		t = m.Vec3{}
	}
	if mask.rotation {
		r = m.QuatIdentity()
	}
	if mask.scale {
		s = m.V3([3]float64{1, 1, 1})
	}
	setNodeTRS(n, t, r, s)
}

// target is a split candidate with its world matrix accumulated from
// the scene root down to (excluding) the node itself.
type target struct {
	node   int
	parent m.Mat4
}

// collectTargets walks to the requested depth. Intermediate levels are
// collapsed by carrying their transforms down, so a part's placement in
// the world is preserved even when its ancestors are discarded.
func collectTargets(doc *gltf.Document, scene *gltf.Scene, depth int) []target {
	var out []target
	var walk func(node int, parent m.Mat4, level int)
	walk = func(node int, parent m.Mat4, level int) {
		if level == depth {
			out = append(out, target{node: node, parent: parent})
			return
		}
		world := parent.Mul(localMatrix(doc.Nodes[node]))
		for _, c := range doc.Nodes[node].Children {
			walk(c, world, level+1)
		}
	}
	for _, root := range scene.Nodes {
		walk(root, m.Identity(), 1)
	}
	return out
}

// instanceFor computes the transform that places an extracted part
// where the occurrence sat in the original scene. The part keeps its
// root transform minus the reset components, so the correction is the
// occurrence's world matrix times the inverse of what the part kept.
func instanceFor(doc *gltf.Document, tgt target, part Part, partIdx int) Instance {
	world := tgt.parent.Mul(localMatrix(doc.Nodes[tgt.node]))
	correction := world.Mul(part.Transform.Matrix().Inverse())
	idx := partIdx
	parent := 0
	return Instance{Source: &idx, Parent: &parent, Transform: FromMatrix(correction)}
}

func extractPart(doc *gltf.Document, tgt target, mask resetMask, names map[string]int, log *zap.SugaredLogger) (Part, error) {
	clone, err := cloneDocument(doc)
	if err != nil {
		return Part{}, err
	}

	root := tgt.node
	applyReset(clone.Nodes[root], mask)
	kept := localMatrix(clone.Nodes[root])

	sceneIdx := 0
	if clone.Scene != nil {
		sceneIdx = *clone.Scene
	}
	clone.Scenes = []*gltf.Scene{{Name: clone.Scenes[sceneIdx].Name, Nodes: []int{root}}}
	clone.Scene = gltf.Index(0)
	clone.Animations = nil

	collectGarbage(clone, root)

	part := Part{
		Name:      uniqueName(nodeLabel(doc.Nodes[tgt.node], tgt.node), names, log),
		Doc:       clone,
		Transform: FromMatrix(kept),
	}
	part.Bounds, err = documentBounds(clone)
	if err != nil {
		return Part{}, err
	}
	return part, nil
}

func cloneDocument(doc *gltf.Document) (*gltf.Document, error) {
	raw, err := surgeon.EncodeGLB(doc)
	if err != nil {
		return nil, err
	}
	return surgeon.DecodeGLB(raw)
}

func nodeLabel(n *gltf.Node, idx int) string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("node%d", idx)
}

// uniqueName suffixes colliding part names with -2, -3 and so on, since
// part names become output file names.
func uniqueName(base string, names map[string]int, log *zap.SugaredLogger) string {
	names[base]++
	if names[base] == 1 {
		return base
	}
	name := fmt.Sprintf("%s-%d", base, names[base])
	log.Warnf("part name %q already taken, renaming to %q", base, name)
	return name
}
