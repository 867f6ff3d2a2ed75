package surgeon

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/playkostudios/model-splitter/internal/config"
	"github.com/playkostudios/model-splitter/internal/errs"
	"github.com/playkostudios/model-splitter/internal/texcache"
	"github.com/playkostudios/model-splitter/pkg/contenthash"
	"github.com/playkostudios/model-splitter/pkg/idshift"
)

// Options control one LOD materialization pass.
type Options struct {
	Resize    config.ResizePolicy
	Embed     bool
	Generator string
}

// Materialize rewrites doc in place for one LOD: textures are resized
// through the cache and either re-embedded or externalized, unused
// graph elements are removed with all dependent indices re-shifted,
// and the generator string is stamped. The document must be private to
// this LOD.
func Materialize(doc *gltf.Document, opts Options, cache *texcache.Cache, log *zap.SugaredLogger) error {
	if len(doc.Images) > 0 {
		if err := rewriteTextures(doc, opts, cache, log); err != nil {
			return err
		}
	}

	dropEmptyArrays(doc)
	stampGenerator(doc, opts.Generator)
	return nil
}

// imagePlan is the cache outcome for one buffer-view-backed image.
type imagePlan struct {
	viewIdx     int
	repl        Replacement
	fingerprint string
}

func rewriteTextures(doc *gltf.Document, opts Options, cache *texcache.Cache, log *zap.SugaredLogger) error {
	plans := make(map[int]imagePlan)
	for i, img := range doc.Images {
		if img.BufferView == nil {
			// Already an external URI reference; nothing to rewrite.
			continue
		}
		viewIdx := *img.BufferView
		if viewIdx < 0 || viewIdx >= len(doc.BufferViews) {
			return fmt.Errorf("image %d references missing buffer view %d", i, viewIdx)
		}
		raw, err := viewBytes(doc, doc.BufferViews[viewIdx])
		if err != nil {
			return err
		}

		inputFP := contenthash.SumSniffed(raw)
		res, err := cache.Resize(opts.Resize, raw, inputFP, opts.Embed)
		if err != nil {
			return err
		}

		if opts.Embed {
			if res.Fingerprint == inputFP {
				// Content unchanged; leave the view alone.
				continue
			}
			img.MimeType = "image/png"
			plans[i] = imagePlan{viewIdx: viewIdx, repl: Replacement{Data: res.Data}, fingerprint: res.Fingerprint}
		} else {
			plans[i] = imagePlan{viewIdx: viewIdx, repl: Replacement{External: true}, fingerprint: res.Fingerprint}
		}
	}
	if len(plans) == 0 {
		return nil
	}

	if err := rebuildBuffers(doc, plans); err != nil {
		return err
	}

	if !opts.Embed {
		return externalizeGraph(doc, plans, log)
	}
	return nil
}

// rebuildBuffers rewrites the backing bytes of every buffer holding a
// replaced image and re-points all of that buffer's views.
func rebuildBuffers(doc *gltf.Document, plans map[int]imagePlan) error {
	byBuffer := make(map[int]map[int]Replacement)
	for _, p := range plans {
		bufIdx := doc.BufferViews[p.viewIdx].Buffer
		if byBuffer[bufIdx] == nil {
			byBuffer[bufIdx] = make(map[int]Replacement)
		}
		byBuffer[bufIdx][p.viewIdx] = p.repl
	}

	for bufIdx, repl := range byBuffer {
		if bufIdx < 0 || bufIdx >= len(doc.Buffers) {
			return fmt.Errorf("buffer view references missing buffer %d", bufIdx)
		}
		buf := doc.Buffers[bufIdx]

		var views []ViewSpan
		for vi, bv := range doc.BufferViews {
			if bv.Buffer == bufIdx {
				views = append(views, ViewSpan{Index: vi, Offset: bv.ByteOffset, Length: bv.ByteLength})
			}
		}

		newData, remap, err := Rebuild(buf.Data, views, repl)
		if err != nil {
			return err
		}
		for vi, r := range remap {
			doc.BufferViews[vi].ByteOffset = r.Offset
			doc.BufferViews[vi].ByteLength = r.Length
		}
		buf.Data = newData
		buf.ByteLength = len(newData)
	}
	return nil
}

// externalizeGraph removes the images whose content now lives in
// external files, along with the textures, samplers and materials that
// only existed to reference them.
func externalizeGraph(doc *gltf.Document, plans map[int]imagePlan, log *zap.SugaredLogger) error {
	deletedImages := make([]int, 0, len(plans))
	for i := range plans {
		deletedImages = append(deletedImages, i)
	}
	sort.Ints(deletedImages)

	// Textures backed by an externalized image go away; their role in a
	// material is replaced by the output fingerprint.
	texFP := make(map[int]string)
	var deletedTextures []int
	for ti, tex := range doc.Textures {
		if tex.Source == nil {
			continue
		}
		if p, ok := plans[*tex.Source]; ok {
			texFP[ti] = p.fingerprint
			deletedTextures = append(deletedTextures, ti)
		}
	}

	// Convert materials before any array is compacted.
	var converted []ConvertedMaterial
	convertedIdx := make(map[int]int)
	var deletedMaterials []int
	for mi, mat := range doc.Materials {
		cm, ok, err := convertMaterial(mat, texFP)
		if err != nil {
			return err
		}
		if ok {
			convertedIdx[mi] = len(converted)
			converted = append(converted, cm)
			deletedMaterials = append(deletedMaterials, mi)
		}
	}

	// Samplers only referenced by deleted textures become unreferenced.
	deletedTexSet := make(map[int]bool, len(deletedTextures))
	for _, ti := range deletedTextures {
		deletedTexSet[ti] = true
	}
	referencedSamplers := make(map[int]bool)
	for ti, tex := range doc.Textures {
		if deletedTexSet[ti] || tex.Sampler == nil {
			continue
		}
		referencedSamplers[*tex.Sampler] = true
	}
	var deletedSamplers []int
	for si := range doc.Samplers {
		if !referencedSamplers[si] {
			deletedSamplers = append(deletedSamplers, si)
		}
	}

	// Primitives that used a converted material point at one shared
	// dummy material instead, recorded per mesh.
	dummyIdx := len(doc.Materials) - len(deletedMaterials)
	for _, mesh := range doc.Meshes {
		var repls [][2]int
		for pi, prim := range mesh.Primitives {
			if prim.Material == nil {
				continue
			}
			if ci, ok := convertedIdx[*prim.Material]; ok {
				prim.Material = gltf.Index(dummyIdx)
				repls = append(repls, [2]int{pi, ci})
			} else {
				prim.Material = gltf.Index(idshift.Shift(*prim.Material, deletedMaterials))
			}
		}
		if len(repls) > 0 {
			if mesh.Extensions == nil {
				mesh.Extensions = gltf.Extensions{}
			}
			mesh.Extensions[ExtensionName] = MeshExtension{Replacements: repls}
		}
	}

	// Re-shift surviving references against each deleted index set.
	for ti, tex := range doc.Textures {
		if deletedTexSet[ti] {
			continue
		}
		if tex.Source != nil {
			tex.Source = gltf.Index(idshift.Shift(*tex.Source, deletedImages))
		}
		if tex.Sampler != nil {
			tex.Sampler = gltf.Index(idshift.Shift(*tex.Sampler, deletedSamplers))
		}
	}
	for mi, mat := range doc.Materials {
		if _, gone := convertedIdx[mi]; gone {
			continue
		}
		shiftMaterialTextures(mat, func(idx int) int {
			return idshift.Shift(idx, deletedTextures)
		})
	}

	doc.Images = compact(doc.Images, toSet(deletedImages))
	doc.Textures = compact(doc.Textures, deletedTexSet)
	doc.Samplers = compact(doc.Samplers, toSet(deletedSamplers))
	doc.Materials = compact(doc.Materials, toSet(deletedMaterials))
	if len(converted) > 0 {
		doc.Materials = append(doc.Materials, &gltf.Material{Name: "converted-placeholder"})
		if doc.Extensions == nil {
			doc.Extensions = gltf.Extensions{}
		}
		doc.Extensions[ExtensionName] = RootExtension{Materials: converted}
		addExtensionUsed(doc, ExtensionName)
	}

	log.Debugf("externalized %d images, removed %d textures, %d samplers, %d materials",
		len(deletedImages), len(deletedTextures), len(deletedSamplers), len(deletedMaterials))
	return nil
}

// viewBytes returns the raw bytes a buffer view covers.
func viewBytes(doc *gltf.Document, bv *gltf.BufferView) ([]byte, error) {
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer view references missing buffer %d", bv.Buffer)
	}
	buf := doc.Buffers[bv.Buffer]
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(buf.Data) {
		return nil, fmt.Errorf("buffer view range [%d, %d) outside buffer %d of %d bytes",
			bv.ByteOffset, end, bv.Buffer, len(buf.Data))
	}
	return buf.Data[bv.ByteOffset:end], nil
}

func toSet(indices []int) map[int]bool {
	set := make(map[int]bool, len(indices))
	for _, i := range indices {
		set[i] = true
	}
	return set
}

func compact[T any](items []*T, deleted map[int]bool) []*T {
	if len(deleted) == 0 {
		return items
	}
	out := items[:0]
	for i, item := range items {
		if !deleted[i] {
			out = append(out, item)
		}
	}
	return out
}

// dropEmptyArrays removes empty top-level arrays so they are not
// serialized at all.
func dropEmptyArrays(doc *gltf.Document) {
	if len(doc.Images) == 0 {
		doc.Images = nil
	}
	if len(doc.Textures) == 0 {
		doc.Textures = nil
	}
	if len(doc.Samplers) == 0 {
		doc.Samplers = nil
	}
	if len(doc.Materials) == 0 {
		doc.Materials = nil
	}
	if len(doc.Buffers) == 0 {
		doc.Buffers = nil
	}
	if len(doc.BufferViews) == 0 {
		doc.BufferViews = nil
	}
}

func addExtensionUsed(doc *gltf.Document, name string) {
	for _, used := range doc.ExtensionsUsed {
		if used == name {
			return
		}
	}
	doc.ExtensionsUsed = append(doc.ExtensionsUsed, name)
}

// stampGenerator records this tool in the asset generator string,
// chaining any pre-existing generator.
func stampGenerator(doc *gltf.Document, generator string) {
	if generator == "" {
		return
	}
	if doc.Asset.Generator != "" {
		doc.Asset.Generator = generator + " | " + doc.Asset.Generator
	} else {
		doc.Asset.Generator = generator
	}
}

// WriteGLB serializes doc to path in the binary container format and
// returns the written byte size. An existing path is a CollisionError
// unless force is set.
func WriteGLB(doc *gltf.Document, path string, force bool) (int, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return 0, &errs.CollisionError{Path: path}
		}
	}

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("serializing document: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return buf.Len(), nil
}

// EncodeGLB serializes doc to bytes in the binary container format.
func EncodeGLB(doc *gltf.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeGLB parses a binary scene document.
func DecodeGLB(data []byte) (*gltf.Document, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return doc, nil
}
