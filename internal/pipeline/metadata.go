package pipeline

import (
	"encoding/json"
	"os"

	"github.com/playkostudios/model-splitter/internal/splitgraph"
)

// LODEntry describes one produced LOD file.
type LODEntry struct {
	File     string  `json:"file"`
	LODRatio float64 `json:"lodRatio"`
	Bytes    int     `json:"bytes"`
}

// PartMetadata describes one extracted part: its LOD family, the rest
// transform it was extracted with, and its bounding box.
type PartMetadata struct {
	LODs      []LODEntry           `json:"lods"`
	Transform splitgraph.Transform `json:"transform"`
	AABB      Bounds               `json:"aabb"`
}

type Bounds struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// metadata accumulates the sidecar description as LODs are produced.
// Non-split runs serialize a flat LOD list; split runs a per-part map.
type metadata struct {
	split bool
	flat  []LODEntry
	parts map[string]*PartMetadata
}

func newMetadata(split bool) *metadata {
	return &metadata{split: split, parts: make(map[string]*PartMetadata)}
}

func (m *metadata) addLOD(part *splitgraph.Part, entry LODEntry) {
	if !m.split {
		m.flat = append(m.flat, entry)
		return
	}
	pm, ok := m.parts[part.Name]
	if !ok {
		pm = &PartMetadata{
			Transform: part.Transform,
			AABB:      Bounds{Min: part.Bounds.Min.Array(), Max: part.Bounds.Max.Array()},
		}
		m.parts[part.Name] = pm
	}
	pm.LODs = append(pm.LODs, entry)
}

func (m *metadata) write(path string) error {
	var payload any
	if m.split {
		payload = struct {
			Parts map[string]*PartMetadata `json:"parts"`
		}{m.parts}
	} else {
		payload = struct {
			LODs []LODEntry `json:"lods"`
		}{m.flat}
	}
	return writeJSON(path, payload)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
