package splitgraph

import (
	"github.com/qmuntal/gltf"
)

// collectGarbage drops every node, mesh, skin, material, texture,
// sampler, image, accessor and buffer view unreachable from root,
// compacting the document arrays and rewriting all cross references.
// Buffer byte ranges are left alone; the simplification engine rewrites
// buffers anyway, so excising bytes here would be wasted work.
func collectGarbage(doc *gltf.Document, root int) {
	nodes := make(map[int]bool)
	var markNode func(int)
	markNode = func(i int) {
		if nodes[i] {
			return
		}
		nodes[i] = true
		for _, c := range doc.Nodes[i].Children {
			markNode(c)
		}
	}
	markNode(root)

	meshes := make(map[int]bool)
	skins := make(map[int]bool)
	cameras := make(map[int]bool)
	for i := range doc.Nodes {
		if !nodes[i] {
			continue
		}
		n := doc.Nodes[i]
		if n.Mesh != nil {
			meshes[*n.Mesh] = true
		}
		if n.Camera != nil {
			cameras[*n.Camera] = true
		}
		if n.Skin != nil {
			skins[*n.Skin] = true
		}
	}
	// Skin joints may sit outside the subtree; keep them so the rig
	// stays valid.
	for i, skin := range doc.Skins {
		if !skins[i] {
			continue
		}
		for _, j := range skin.Joints {
			markNode(j)
		}
		if skin.Skeleton != nil {
			markNode(*skin.Skeleton)
		}
	}

	accessors := make(map[int]bool)
	materials := make(map[int]bool)
	for i, mesh := range doc.Meshes {
		if !meshes[i] {
			continue
		}
		for _, p := range mesh.Primitives {
			for _, acc := range p.Attributes {
				accessors[acc] = true
			}
			if p.Indices != nil {
				accessors[*p.Indices] = true
			}
			if p.Material != nil {
				materials[*p.Material] = true
			}
			for _, tgt := range p.Targets {
				for _, acc := range tgt {
					accessors[acc] = true
				}
			}
		}
	}
	for i, skin := range doc.Skins {
		if skins[i] && skin.InverseBindMatrices != nil {
			accessors[*skin.InverseBindMatrices] = true
		}
	}

	textures := make(map[int]bool)
	for i, mat := range doc.Materials {
		if !materials[i] {
			continue
		}
		for _, tex := range materialTextures(mat) {
			textures[tex] = true
		}
	}

	images := make(map[int]bool)
	samplers := make(map[int]bool)
	for i, tex := range doc.Textures {
		if !textures[i] {
			continue
		}
		if tex.Source != nil {
			images[*tex.Source] = true
		}
		if tex.Sampler != nil {
			samplers[*tex.Sampler] = true
		}
	}

	views := make(map[int]bool)
	for i, acc := range doc.Accessors {
		if accessors[i] && acc.BufferView != nil {
			views[*acc.BufferView] = true
		}
	}
	for i, img := range doc.Images {
		if images[i] && img.BufferView != nil {
			views[*img.BufferView] = true
		}
	}

	nodeRemap := compactSlice(&doc.Nodes, nodes)
	meshRemap := compactSlice(&doc.Meshes, meshes)
	skinRemap := compactSlice(&doc.Skins, skins)
	cameraRemap := compactSlice(&doc.Cameras, cameras)
	accRemap := compactSlice(&doc.Accessors, accessors)
	matRemap := compactSlice(&doc.Materials, materials)
	texRemap := compactSlice(&doc.Textures, textures)
	imgRemap := compactSlice(&doc.Images, images)
	sampRemap := compactSlice(&doc.Samplers, samplers)
	viewRemap := compactSlice(&doc.BufferViews, views)

	for _, scene := range doc.Scenes {
		scene.Nodes = remapList(scene.Nodes, nodeRemap)
	}
	for _, n := range doc.Nodes {
		n.Children = remapList(n.Children, nodeRemap)
		remapIndex(n.Mesh, meshRemap)
		remapIndex(n.Skin, skinRemap)
		remapIndex(n.Camera, cameraRemap)
	}
	for _, skin := range doc.Skins {
		skin.Joints = remapList(skin.Joints, nodeRemap)
		remapIndex(skin.Skeleton, nodeRemap)
		remapIndex(skin.InverseBindMatrices, accRemap)
	}
	for _, mesh := range doc.Meshes {
		for pi := range mesh.Primitives {
			p := mesh.Primitives[pi]
			for name, acc := range p.Attributes {
				p.Attributes[name] = accRemap[acc]
			}
			remapIndex(p.Indices, accRemap)
			remapIndex(p.Material, matRemap)
			for _, tgt := range p.Targets {
				for name, acc := range tgt {
					tgt[name] = accRemap[acc]
				}
			}
		}
	}
	for _, mat := range doc.Materials {
		remapMaterialTextures(mat, texRemap)
	}
	for _, tex := range doc.Textures {
		remapIndex(tex.Source, imgRemap)
		remapIndex(tex.Sampler, sampRemap)
	}
	for _, acc := range doc.Accessors {
		remapIndex(acc.BufferView, viewRemap)
	}
	for _, img := range doc.Images {
		remapIndex(img.BufferView, viewRemap)
	}
}

func materialTextures(mat *gltf.Material) []int {
	var out []int
	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorTexture != nil {
			out = append(out, pbr.BaseColorTexture.Index)
		}
		if pbr.MetallicRoughnessTexture != nil {
			out = append(out, pbr.MetallicRoughnessTexture.Index)
		}
	}
	if mat.NormalTexture != nil && mat.NormalTexture.Index != nil {
		out = append(out, *mat.NormalTexture.Index)
	}
	if mat.OcclusionTexture != nil && mat.OcclusionTexture.Index != nil {
		out = append(out, *mat.OcclusionTexture.Index)
	}
	if mat.EmissiveTexture != nil {
		out = append(out, mat.EmissiveTexture.Index)
	}
	return out
}

func remapMaterialTextures(mat *gltf.Material, remap map[int]int) {
	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorTexture != nil {
			pbr.BaseColorTexture.Index = remap[pbr.BaseColorTexture.Index]
		}
		if pbr.MetallicRoughnessTexture != nil {
			pbr.MetallicRoughnessTexture.Index = remap[pbr.MetallicRoughnessTexture.Index]
		}
	}
	if mat.NormalTexture != nil && mat.NormalTexture.Index != nil {
		*mat.NormalTexture.Index = remap[*mat.NormalTexture.Index]
	}
	if mat.OcclusionTexture != nil && mat.OcclusionTexture.Index != nil {
		*mat.OcclusionTexture.Index = remap[*mat.OcclusionTexture.Index]
	}
	if mat.EmissiveTexture != nil {
		mat.EmissiveTexture.Index = remap[mat.EmissiveTexture.Index]
	}
}

// compactSlice drops entries whose index is not in keep and returns the
// old-to-new index mapping.
func compactSlice[T any](items *[]T, keep map[int]bool) map[int]int {
	remap := make(map[int]int, len(keep))
	out := (*items)[:0]
	for i, item := range *items {
		if keep[i] {
			remap[i] = len(out)
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		*items = nil
		return remap
	}
	*items = out
	return remap
}

func remapList(indices []int, remap map[int]int) []int {
	for i, v := range indices {
		indices[i] = remap[v]
	}
	return indices
}

func remapIndex(idx *int, remap map[int]int) {
	if idx != nil {
		*idx = remap[*idx]
	}
}
