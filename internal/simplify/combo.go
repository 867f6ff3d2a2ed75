// Package simplify invokes the external mesh-simplification engine,
// once per distinct argument combination.
package simplify

import (
	"fmt"
	"strconv"

	"github.com/playkostudios/model-splitter/internal/config"
)

// Combo is one distinct set of engine-relevant LOD parameters. Two LOD
// requests with equal combos share a single engine invocation.
type Combo struct {
	Ratio          float64
	KeepHierarchy  bool
	MergeMaterials bool
	Aggressive     bool
	Compression    config.TextureCompression
	// Resize is only meaningful when Compression is enabled; the engine
	// then resizes textures itself.
	Resize config.ResizePolicy
}

// Combos collapses parsed LOD requests into their distinct argument
// combinations, ordered by the combo indices assigned at parse time.
func Combos(lods []config.LOD) []Combo {
	combos := make([]Combo, config.ComboCount(lods))
	seen := make([]bool, len(combos))
	for _, lod := range lods {
		if seen[lod.ComboIndex] {
			continue
		}
		seen[lod.ComboIndex] = true
		c := Combo{
			Ratio:          lod.Ratio,
			KeepHierarchy:  lod.KeepHierarchy,
			MergeMaterials: lod.MergeMaterials,
			Aggressive:     lod.Aggressive,
			Compression:    lod.Compression,
		}
		if lod.Compression != config.CompressionDisabled {
			c.Resize = lod.Resize
		}
		combos[lod.ComboIndex] = c
	}
	return combos
}

// Args builds the deterministic engine argument list for this combo.
func (c Combo) Args(input, output string) []string {
	args := []string{
		"-i", input,
		"-o", output,
		"-si", strconv.FormatFloat(c.Ratio, 'f', -1, 64),
	}
	if c.Aggressive {
		args = append(args, "-sa")
	}
	if c.KeepHierarchy {
		args = append(args, "-kn")
	}
	if !c.MergeMaterials {
		args = append(args, "-km")
	}
	switch c.Compression {
	case config.CompressionETC1S:
		args = append(args, "-tc")
	case config.CompressionUASTC:
		args = append(args, "-tc", "-tu")
	}
	if c.Compression != config.CompressionDisabled {
		switch c.Resize.Kind {
		case config.ResizePercent:
			args = append(args, "-ts", strconv.FormatFloat(c.Resize.Percent/100, 'f', -1, 64))
		case config.ResizeAbsolute:
			limit := c.Resize.Width
			if c.Resize.Height > limit {
				limit = c.Resize.Height
			}
			args = append(args, "-tl", strconv.Itoa(limit))
		}
	}
	return args
}

func (c Combo) String() string {
	return fmt.Sprintf("ratio=%g hierarchy=%t merge=%t aggressive=%t compression=%s",
		c.Ratio, c.KeepHierarchy, c.MergeMaterials, c.Aggressive, c.Compression)
}
