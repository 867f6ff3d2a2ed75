// Package texcache caches resized textures by content fingerprint so
// the same source texture is never resized or written twice in a run.
package texcache

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/playkostudios/model-splitter/internal/config"
	"github.com/playkostudios/model-splitter/internal/errs"
	"github.com/playkostudios/model-splitter/internal/imageops"
	"github.com/playkostudios/model-splitter/pkg/contenthash"
)

// Engine is the external image-resize library surface.
type Engine interface {
	Metadata(data []byte) (width, height int, err error)
	Resize(data []byte, width, height int) ([]byte, error)
}

type imageopsEngine struct{}

func (imageopsEngine) Metadata(data []byte) (int, int, error) { return imageops.Metadata(data) }
func (imageopsEngine) Resize(data []byte, w, h int) ([]byte, error) {
	return imageops.Resize(data, w, h)
}

// Tier is the storage tier of a cached result.
type Tier int

const (
	// TierTemp means the result lives in the temporary subfolder and is
	// only needed for embedding so far.
	TierTemp Tier = iota
	// TierOutput means the result has been persisted to the output
	// directory.
	TierOutput
)

// operation records one completed resize.
type operation struct {
	inputFP  string
	outputFP string
	width    int
	height   int
}

// Result is the outcome of a cache query.
type Result struct {
	// Data holds the texture bytes when the caller embeds them.
	Data []byte
	// Fingerprint is the output content fingerprint, which doubles as
	// the external file name.
	Fingerprint string
}

// Cache is the per-run texture cache. Not safe for concurrent use; the
// pipeline serializes access.
type Cache struct {
	outDir  string
	tempDir string // lazily created
	engine  Engine
	log     *zap.SugaredLogger

	tiers    map[string]Tier     // output fingerprint -> tier
	ops      []operation         // completed resizes, scan order
	kept     map[string]struct{} // externally written keep-policy fingerprints
	contents map[string][]byte   // output fingerprint -> bytes

	warnedCopy bool
}

// New creates a cache writing external textures into outDir. A nil
// engine selects the built-in image library.
func New(outDir string, engine Engine, log *zap.SugaredLogger) *Cache {
	if engine == nil {
		engine = imageopsEngine{}
	}
	return &Cache{
		outDir:   outDir,
		engine:   engine,
		log:      log,
		tiers:    make(map[string]Tier),
		kept:     make(map[string]struct{}),
		contents: make(map[string][]byte),
	}
}

// Resize routes one texture through the cache. inputFP must be the
// fingerprint of data. When embed is true the caller receives the
// resulting bytes; otherwise the result is persisted to the output
// directory under its fingerprint name.
func (c *Cache) Resize(policy config.ResizePolicy, data []byte, inputFP string, embed bool) (Result, error) {
	policy, err := c.normalize(policy, data)
	if err != nil {
		return Result{}, err
	}

	if policy.Kind == config.ResizeKeep {
		if embed {
			return Result{Data: data, Fingerprint: inputFP}, nil
		}
		if err := c.StoreExternal(data, inputFP); err != nil {
			return Result{}, err
		}
		return Result{Fingerprint: inputFP}, nil
	}

	// Completed-operation hit: same input, same target size.
	for _, op := range c.ops {
		if op.inputFP == inputFP && op.width == policy.Width && op.height == policy.Height {
			return c.serve(op.outputFP, embed)
		}
	}

	out, err := c.engine.Resize(data, policy.Width, policy.Height)
	if err != nil {
		return Result{}, &errs.ToolError{Tool: "image resize", Err: err}
	}
	outputFP := contenthash.SumSniffed(out)

	if _, seen := c.tiers[outputFP]; seen {
		// A different input resized to byte-identical output. Merge
		// into the existing entry instead of duplicating the file.
		c.log.Warnf("textures %s and resize %dx%d produce output identical to an earlier entry (%s); "+
			"normalize resize parameters to avoid redundant work", inputFP, policy.Width, policy.Height, outputFP)
		c.ops = append(c.ops, operation{inputFP, outputFP, policy.Width, policy.Height})
		return c.serve(outputFP, embed)
	}

	c.ops = append(c.ops, operation{inputFP, outputFP, policy.Width, policy.Height})
	c.contents[outputFP] = out

	if embed {
		if err := c.stageTemp(outputFP, out); err != nil {
			return Result{}, err
		}
		c.tiers[outputFP] = TierTemp
		return Result{Data: out, Fingerprint: outputFP}, nil
	}

	if err := c.writeOutput(outputFP, out); err != nil {
		return Result{}, err
	}
	c.tiers[outputFP] = TierOutput
	return Result{Fingerprint: outputFP}, nil
}

// serve returns an already-cached entry, promoting it to the output
// directory when the caller needs it externally.
func (c *Cache) serve(outputFP string, embed bool) (Result, error) {
	if embed {
		return Result{Data: c.contents[outputFP], Fingerprint: outputFP}, nil
	}
	if c.tiers[outputFP] == TierTemp {
		if err := c.promote(outputFP); err != nil {
			return Result{}, err
		}
	}
	return Result{Fingerprint: outputFP}, nil
}

// StoreExternal writes an externally-kept texture once per fingerprint.
func (c *Cache) StoreExternal(data []byte, fingerprint string) error {
	if _, done := c.kept[fingerprint]; done {
		return nil
	}
	if err := c.writeOutput(fingerprint, data); err != nil {
		return err
	}
	c.kept[fingerprint] = struct{}{}
	return nil
}

// Cleanup clears all cache state and removes the temporary subfolder.
func (c *Cache) Cleanup() {
	c.tiers = make(map[string]Tier)
	c.ops = nil
	c.kept = make(map[string]struct{})
	c.contents = make(map[string][]byte)
	if c.tempDir != "" {
		if err := os.RemoveAll(c.tempDir); err != nil {
			c.log.Warnf("removing texture cache folder: %v", err)
		}
		c.tempDir = ""
	}
}

// normalize converts a percentage policy to absolute pixel dimensions,
// collapsing a no-op percentage to keep.
func (c *Cache) normalize(policy config.ResizePolicy, data []byte) (config.ResizePolicy, error) {
	if policy.Kind != config.ResizePercent {
		return policy, nil
	}
	w, h, err := c.engine.Metadata(data)
	if err != nil || w <= 0 || h <= 0 {
		return policy, &errs.ToolError{
			Tool:   "image metadata",
			Detail: "width/height unavailable for percentage-based resize",
			Err:    err,
		}
	}
	tw := int(math.Max(1, math.Round(float64(w)*policy.Percent/100)))
	th := int(math.Max(1, math.Round(float64(h)*policy.Percent/100)))
	if tw == w && th == h {
		return config.ResizePolicy{Kind: config.ResizeKeep}, nil
	}
	return config.ResizePolicy{Kind: config.ResizeAbsolute, Width: tw, Height: th}, nil
}

func (c *Cache) stageTemp(fingerprint string, data []byte) error {
	if c.tempDir == "" {
		// Staged under the output directory so promotion is a rename
		// on the same filesystem.
		if err := os.MkdirAll(c.outDir, 0o755); err != nil {
			return fmt.Errorf("creating texture cache folder: %w", err)
		}
		dir, err := os.MkdirTemp(c.outDir, ".texcache-*")
		if err != nil {
			return fmt.Errorf("creating texture cache folder: %w", err)
		}
		c.tempDir = dir
	}
	return os.WriteFile(filepath.Join(c.tempDir, fingerprint), data, 0o644)
}

func (c *Cache) writeOutput(fingerprint string, data []byte) error {
	dest := filepath.Join(c.outDir, fingerprint)
	if err := checkDest(dest); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

// promote moves a staged result into the output directory.
func (c *Cache) promote(fingerprint string) error {
	src := filepath.Join(c.tempDir, fingerprint)
	dest := filepath.Join(c.outDir, fingerprint)
	if err := checkDest(dest); err != nil {
		return err
	}
	if err := os.Rename(src, dest); err != nil {
		if !c.warnedCopy {
			c.log.Warnf("cache folder and output directory are on different filesystems, copying instead of moving")
			c.warnedCopy = true
		}
		if err := copyFile(src, dest); err != nil {
			return err
		}
		if err := os.Remove(src); err != nil {
			return err
		}
	}
	c.tiers[fingerprint] = TierOutput
	return nil
}

// checkDest fails when the destination exists as something other than a
// regular file.
func checkDest(dest string) error {
	info, err := os.Lstat(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("texture destination %s exists and is not a regular file", dest)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
