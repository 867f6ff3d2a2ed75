package surgeon

import (
	"fmt"

	"github.com/qmuntal/gltf"
)

// ExtensionName is the custom extension holding converted materials at
// the document root and primitive replacement records per mesh.
const ExtensionName = "PLAYKO_converted_materials"

// ConvertedMaterial is a material whose textures were moved out of the
// document into externally-referenced files. Texture roles map to the
// output content fingerprint that doubles as the external file name.
type ConvertedMaterial struct {
	Name            string            `json:"name,omitempty"`
	Textures        map[string]string `json:"textures"`
	BaseColorFactor *[4]float64       `json:"baseColorFactor,omitempty"`
	MetallicFactor  *float64          `json:"metallicFactor,omitempty"`
	RoughnessFactor *float64          `json:"roughnessFactor,omitempty"`
	EmissiveFactor  *[3]float64       `json:"emissiveFactor,omitempty"`
	AlphaCutoff     *float64          `json:"alphaCutoff,omitempty"`
}

// RootExtension is the document-root extension block.
type RootExtension struct {
	Materials []ConvertedMaterial `json:"materials"`
}

// MeshExtension records, per mesh, which primitives had their material
// converted: pairs of (primitive index, converted material index).
type MeshExtension struct {
	Replacements [][2]int `json:"replacements"`
}

// textureSlot is one texture reference on a material.
type textureSlot struct {
	role     string
	index    int
	texCoord int
}

func materialSlots(mat *gltf.Material) []textureSlot {
	var slots []textureSlot
	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorTexture != nil {
			slots = append(slots, textureSlot{"baseColor", pbr.BaseColorTexture.Index, pbr.BaseColorTexture.TexCoord})
		}
		if pbr.MetallicRoughnessTexture != nil {
			slots = append(slots, textureSlot{"metallicRoughness", pbr.MetallicRoughnessTexture.Index, pbr.MetallicRoughnessTexture.TexCoord})
		}
	}
	if mat.NormalTexture != nil && mat.NormalTexture.Index != nil {
		slots = append(slots, textureSlot{"normal", *mat.NormalTexture.Index, mat.NormalTexture.TexCoord})
	}
	if mat.OcclusionTexture != nil && mat.OcclusionTexture.Index != nil {
		slots = append(slots, textureSlot{"occlusion", *mat.OcclusionTexture.Index, mat.OcclusionTexture.TexCoord})
	}
	if mat.EmissiveTexture != nil {
		slots = append(slots, textureSlot{"emissive", mat.EmissiveTexture.Index, mat.EmissiveTexture.TexCoord})
	}
	return slots
}

// convertMaterial extracts a material whose textures were externalized.
// A material may not mix externalized and embedded texture references;
// that signals a multi-image-domain material the algorithm does not
// support. Externalized textures must use texture coordinate set 0.
func convertMaterial(mat *gltf.Material, texFP map[int]string) (ConvertedMaterial, bool, error) {
	slots := materialSlots(mat)

	external := 0
	for _, s := range slots {
		if _, ok := texFP[s.index]; ok {
			external++
		}
	}
	if external == 0 {
		return ConvertedMaterial{}, false, nil
	}
	if external != len(slots) {
		return ConvertedMaterial{}, false,
			fmt.Errorf("material %q mixes embedded and externalized textures", mat.Name)
	}

	cm := ConvertedMaterial{
		Name:     mat.Name,
		Textures: make(map[string]string, len(slots)),
	}
	for _, s := range slots {
		if s.texCoord != 0 {
			return ConvertedMaterial{}, false,
				fmt.Errorf("material %q uses texture coordinate set %d; externalized materials require UV0", mat.Name, s.texCoord)
		}
		cm.Textures[s.role] = texFP[s.index]
	}

	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		cm.BaseColorFactor = pbr.BaseColorFactor
		cm.MetallicFactor = pbr.MetallicFactor
		cm.RoughnessFactor = pbr.RoughnessFactor
	}
	if mat.EmissiveFactor != ([3]float64{}) {
		emissive := mat.EmissiveFactor
		cm.EmissiveFactor = &emissive
	}
	cm.AlphaCutoff = mat.AlphaCutoff

	return cm, true, nil
}

// shiftMaterialTextures re-points a surviving material's texture
// indices after textures were deleted from the document.
func shiftMaterialTextures(mat *gltf.Material, shift func(int) int) {
	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorTexture != nil {
			pbr.BaseColorTexture.Index = shift(pbr.BaseColorTexture.Index)
		}
		if pbr.MetallicRoughnessTexture != nil {
			pbr.MetallicRoughnessTexture.Index = shift(pbr.MetallicRoughnessTexture.Index)
		}
	}
	if mat.NormalTexture != nil && mat.NormalTexture.Index != nil {
		mat.NormalTexture.Index = gltf.Index(shift(*mat.NormalTexture.Index))
	}
	if mat.OcclusionTexture != nil && mat.OcclusionTexture.Index != nil {
		mat.OcclusionTexture.Index = gltf.Index(shift(*mat.OcclusionTexture.Index))
	}
	if mat.EmissiveTexture != nil {
		mat.EmissiveTexture.Index = shift(mat.EmissiveTexture.Index)
	}
}
