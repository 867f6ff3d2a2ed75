package splitgraph

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	stdmath "math"

	"github.com/qmuntal/gltf"
)

// resetMask records which transform components the caller resets on
// extracted roots. Reset components are excluded from root comparison
// since they carry no information after extraction.
type resetMask struct {
	position bool
	rotation bool
	scale    bool
}

// dedupeMeshes re-points nodes at a canonical mesh whenever two meshes
// reference the same accessors, material and mode. This runs before
// subtree comparison so copies produced by exporters that duplicate
// mesh entries per node still compare equal.
func dedupeMeshes(doc *gltf.Document) {
	canonical := make(map[uint64]int)
	remap := make(map[int]int, len(doc.Meshes))
	for i, mesh := range doc.Meshes {
		key := meshKey(mesh)
		if first, ok := canonical[key]; ok && meshesEqual(doc.Meshes[first], mesh) {
			remap[i] = first
		} else {
			canonical[key] = i
			remap[i] = i
		}
	}
	for _, node := range doc.Nodes {
		if node.Mesh != nil {
			*node.Mesh = remap[*node.Mesh]
		}
	}
}

func meshKey(mesh *gltf.Mesh) uint64 {
	h := fnv.New64a()
	writeInt(h, len(mesh.Primitives))
	for _, p := range mesh.Primitives {
		writeInt(h, int(p.Mode))
		writeIndex(h, p.Indices)
		writeIndex(h, p.Material)
		writeInt(h, len(p.Attributes))
		var sum int
		for _, acc := range p.Attributes {
			sum += acc + 1
		}
		writeInt(h, sum)
	}
	return h.Sum64()
}

func meshesEqual(a, b *gltf.Mesh) bool {
	if len(a.Primitives) != len(b.Primitives) {
		return false
	}
	for i, pa := range a.Primitives {
		pb := b.Primitives[i]
		if pa.Mode != pb.Mode || !indexEqual(pa.Indices, pb.Indices) || !indexEqual(pa.Material, pb.Material) {
			return false
		}
		if len(pa.Attributes) != len(pb.Attributes) {
			return false
		}
		for name, acc := range pa.Attributes {
			other, ok := pb.Attributes[name]
			if !ok || other != acc {
				return false
			}
		}
	}
	return true
}

// subtreeHash fingerprints a node subtree ignoring names. Reset
// transform components are skipped on the root node only; descendant
// transforms always participate.
func subtreeHash(doc *gltf.Document, node int, mask resetMask) uint64 {
	h := fnv.New64a()
	hashNode(h, doc, node, mask, true)
	return h.Sum64()
}

func hashNode(h io.Writer, doc *gltf.Document, idx int, mask resetMask, root bool) {
	n := doc.Nodes[idx]
	writeIndex(h, n.Mesh)
	writeIndex(h, n.Skin)
	writeIndex(h, n.Camera)

	t, r, s := nodeTRS(n)
	ta, ra, sa := t.Array(), r.Array(), s.Array()
	if !root || !mask.position {
		writeFloats(h, ta[:])
	}
	if !root || !mask.rotation {
		writeFloats(h, ra[:])
	}
	if !root || !mask.scale {
		writeFloats(h, sa[:])
	}

	writeInt(h, len(n.Children))
	for _, c := range n.Children {
		hashNode(h, doc, c, mask, false)
	}
}

// subtreesEqual is the authoritative comparison backing subtreeHash.
// Hash matches are always confirmed here before a node is treated as a
// duplicate instance.
func subtreesEqual(doc *gltf.Document, a, b int, mask resetMask) bool {
	return nodesEqual(doc, a, b, mask, true)
}

func nodesEqual(doc *gltf.Document, a, b int, mask resetMask, root bool) bool {
	na, nb := doc.Nodes[a], doc.Nodes[b]
	if !indexEqual(na.Mesh, nb.Mesh) || !indexEqual(na.Skin, nb.Skin) || !indexEqual(na.Camera, nb.Camera) {
		return false
	}

	ta, ra, sa := nodeTRS(na)
	tb, rb, sb := nodeTRS(nb)
	if (!root || !mask.position) && ta != tb {
		return false
	}
	if (!root || !mask.rotation) && ra != rb {
		return false
	}
	if (!root || !mask.scale) && sa != sb {
		return false
	}

	if len(na.Children) != len(nb.Children) {
		return false
	}
	for i, ca := range na.Children {
		if !nodesEqual(doc, ca, nb.Children[i], mask, false) {
			return false
		}
	}
	return true
}

func indexEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func writeInt(w io.Writer, v int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	w.Write(buf[:])
}

func writeIndex(w io.Writer, v *int) {
	if v == nil {
		writeInt(w, -1)
		return
	}
	writeInt(w, *v)
}

func writeFloats(w io.Writer, vs []float64) {
	var buf [8]byte
	for _, v := range vs {
		binary.LittleEndian.PutUint64(buf[:], stdmath.Float64bits(v))
		w.Write(buf[:])
	}
}
