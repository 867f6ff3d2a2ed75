package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/playkostudios/model-splitter/internal/errs"
)

// ResizeKind selects how a texture-resize policy is interpreted.
type ResizeKind int

const (
	// ResizeKeep leaves textures at their original size.
	ResizeKeep ResizeKind = iota
	// ResizeAbsolute scales textures to fixed pixel dimensions.
	ResizeAbsolute
	// ResizePercent scales textures relative to their original size.
	ResizePercent
)

// ResizePolicy describes how a LOD's textures are resized. The zero
// value is the keep policy. Comparable by value.
type ResizePolicy struct {
	Kind    ResizeKind
	Width   int
	Height  int
	Percent float64
}

func (p ResizePolicy) String() string {
	switch p.Kind {
	case ResizeAbsolute:
		return fmt.Sprintf("%dx%d", p.Width, p.Height)
	case ResizePercent:
		return fmt.Sprintf("%g%%", p.Percent)
	default:
		return "keep"
	}
}

// TextureCompression selects the engine's texture compression mode.
type TextureCompression string

const (
	CompressionDisabled TextureCompression = "disabled"
	CompressionUASTC    TextureCompression = "uastc"
	CompressionETC1S    TextureCompression = "etc1s"
)

// LOD is a single parsed LOD request. Immutable once parsed.
type LOD struct {
	Ratio          float64
	Resize         ResizePolicy
	Embed          bool
	KeepHierarchy  bool
	MergeMaterials bool
	Aggressive     bool
	Compression    TextureCompression

	// ComboIndex identifies the argument combination this request maps
	// to. Assigned at parse time, stable for the run.
	ComboIndex int
}

// comboKey is the subset of LOD fields that affect the simplification
// pass. The resize policy participates only when compression is on,
// since the engine then performs the resize itself.
type comboKey struct {
	Ratio          float64
	KeepHierarchy  bool
	MergeMaterials bool
	Aggressive     bool
	Compression    TextureCompression
	Resize         ResizePolicy
}

func (l LOD) comboKey() comboKey {
	k := comboKey{
		Ratio:          l.Ratio,
		KeepHierarchy:  l.KeepHierarchy,
		MergeMaterials: l.MergeMaterials,
		Aggressive:     l.Aggressive,
		Compression:    l.Compression,
	}
	if l.Compression != CompressionDisabled {
		k.Resize = l.Resize
	}
	return k
}

// ParseResize parses a texture-size token: "keep", "50%", "512" or
// "512x256".
func ParseResize(s string) (ResizePolicy, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "" || s == "keep" || s == "default":
		return ResizePolicy{Kind: ResizeKeep}, nil
	case strings.HasSuffix(s, "%"):
		pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil || pct <= 0 || pct > 100 {
			return ResizePolicy{}, errs.Invalidf("texture percentage %q must be in (0, 100]", s)
		}
		return ResizePolicy{Kind: ResizePercent, Percent: pct}, nil
	case strings.Contains(s, "x"):
		parts := strings.SplitN(s, "x", 2)
		w, errW := strconv.Atoi(parts[0])
		h, errH := strconv.Atoi(parts[1])
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			return ResizePolicy{}, errs.Invalidf("texture size %q must be WxH with positive dimensions", s)
		}
		return ResizePolicy{Kind: ResizeAbsolute, Width: w, Height: h}, nil
	default:
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return ResizePolicy{}, errs.Invalidf("texture size %q not recognized", s)
		}
		return ResizePolicy{Kind: ResizeAbsolute, Width: n, Height: n}, nil
	}
}

// ParseCompression parses a texture-compression mode token.
func ParseCompression(s string) (TextureCompression, error) {
	switch TextureCompression(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompressionDisabled:
		return CompressionDisabled, nil
	case CompressionUASTC:
		return CompressionUASTC, nil
	case CompressionETC1S:
		return CompressionETC1S, nil
	default:
		return "", errs.Invalidf("texture compression %q must be disabled, uastc or etc1s", s)
	}
}

// ParseLOD parses one LOD argument of the form
// "ratio[:textureSize][:embed|external]", applying defaults to the
// fields the argument leaves unset.
func ParseLOD(token string, d LODDefaults) (LOD, error) {
	defResize, err := ParseResize(d.TextureSize)
	if err != nil {
		return LOD{}, err
	}
	defComp, err := ParseCompression(d.Compression)
	if err != nil {
		return LOD{}, err
	}

	lod := LOD{
		Resize:         defResize,
		Embed:          d.EmbedTextures,
		KeepHierarchy:  d.KeepHierarchy,
		MergeMaterials: d.MergeMaterials,
		Aggressive:     d.Aggressive,
		Compression:    defComp,
	}

	parts := strings.Split(token, ":")
	ratio, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return LOD{}, errs.Invalidf("LOD ratio %q is not a number", parts[0])
	}
	if ratio <= 0 || ratio > 1 {
		return LOD{}, errs.Invalidf("LOD ratio %g out of range (0, 1]", ratio)
	}
	lod.Ratio = ratio

	for _, part := range parts[1:] {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "embed":
			lod.Embed = true
		case "external":
			lod.Embed = false
		default:
			resize, err := ParseResize(part)
			if err != nil {
				return LOD{}, err
			}
			lod.Resize = resize
		}
	}
	return lod, nil
}

// ParseLODs parses every LOD argument and assigns each request its
// stable argument-combination index. At least one LOD is required.
func ParseLODs(tokens []string, d LODDefaults) ([]LOD, error) {
	if len(tokens) == 0 {
		return nil, errs.Invalidf("at least one LOD must be requested")
	}

	lods := make([]LOD, 0, len(tokens))
	var keys []comboKey
	for _, token := range tokens {
		lod, err := ParseLOD(token, d)
		if err != nil {
			return nil, err
		}

		key := lod.comboKey()
		lod.ComboIndex = -1
		for i, k := range keys {
			if k == key {
				lod.ComboIndex = i
				break
			}
		}
		if lod.ComboIndex < 0 {
			lod.ComboIndex = len(keys)
			keys = append(keys, key)
		}
		lods = append(lods, lod)
	}
	return lods, nil
}

// ComboCount returns the number of distinct argument combinations in
// an already-parsed LOD list.
func ComboCount(lods []LOD) int {
	n := 0
	for _, l := range lods {
		if l.ComboIndex >= n {
			n = l.ComboIndex + 1
		}
	}
	return n
}
