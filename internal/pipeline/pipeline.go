package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/playkostudios/model-splitter/internal/config"
	"github.com/playkostudios/model-splitter/internal/errs"
	"github.com/playkostudios/model-splitter/internal/simplify"
	"github.com/playkostudios/model-splitter/internal/splitgraph"
	"github.com/playkostudios/model-splitter/internal/surgeon"
	"github.com/playkostudios/model-splitter/internal/texcache"
	m "github.com/playkostudios/model-splitter/pkg/math"
)

// Version is the tool version stamped into produced documents.
const Version = "1.0.0"

// Pipeline materializes one model into its LOD family.
type Pipeline struct {
	cfg    *config.Config
	lods   []config.LOD
	input  string
	outDir string
	log    *zap.SugaredLogger

	// engine overrides the built-in image library, for tests.
	engine texcache.Engine
}

func New(cfg *config.Config, lods []config.LOD, input, outDir string, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{cfg: cfg, lods: lods, input: input, outDir: outDir, log: log}
}

// Run executes the whole pipeline synchronously: parse input, split
// into parts, simplify once per argument combination, materialize each
// LOD, then write metadata and the optional instance-group file.
func (p *Pipeline) Run(ctx context.Context) error {
	raw, err := os.ReadFile(p.input)
	if err != nil {
		return errs.Invalidf("cannot read input model: %v", err)
	}
	doc, err := surgeon.DecodeGLB(raw)
	if err != nil {
		return errs.Invalidf("cannot parse input model: %v", err)
	}

	parts, instances, err := splitgraph.Split(doc, splitgraph.Options{
		Depth:         p.cfg.Split.Depth,
		ResetPosition: p.cfg.Split.ResetPosition,
		ResetRotation: p.cfg.Split.ResetRotation,
		ResetScale:    p.cfg.Split.ResetScale,
	}, p.log)
	if err != nil {
		return err
	}

	model := strings.TrimSuffix(filepath.Base(p.input), filepath.Ext(p.input))
	if err := p.preflight(model, parts); err != nil {
		return err
	}
	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return err
	}

	cache := texcache.New(p.outDir, p.engine, p.log)
	defer cache.Cleanup()

	// Intermediate per-part documents are staged on disk and consumed
	// from there, so a failed run never leaves half-written parts in
	// the output directory.
	stage, err := os.MkdirTemp("", "model-splitter-parts-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(stage)

	invoker := simplify.NewInvoker(p.cfg.Engine.Path, p.cfg.Engine.Jobs, p.log)
	combos := simplify.Combos(p.lods)

	meta := newMetadata(p.cfg.Split.Depth > 0)
	for pi := range parts {
		if err := p.runPart(ctx, model, stage, &parts[pi], invoker, combos, cache, meta); err != nil {
			return err
		}
	}

	if err := meta.write(filepath.Join(p.outDir, model+".metadata.json")); err != nil {
		return err
	}

	if p.cfg.Split.InstanceGroup && p.cfg.Split.Depth > 0 {
		group := buildGroup(model, parts, instances)
		if err := writeJSON(filepath.Join(p.outDir, model+".instance-group.json"), group); err != nil {
			return err
		}
	}

	p.log.Infow("pipeline finished",
		"model", model, "parts", len(parts), "lods", len(p.lods), "engineRuns", len(combos))
	return nil
}

// preflight checks every planned output path before any destructive
// work, so a collision aborts the run with nothing written.
func (p *Pipeline) preflight(model string, parts []splitgraph.Part) error {
	if p.cfg.Output.Force {
		return nil
	}
	paths := []string{filepath.Join(p.outDir, model+".metadata.json")}
	if p.cfg.Split.InstanceGroup && p.cfg.Split.Depth > 0 {
		paths = append(paths, filepath.Join(p.outDir, model+".instance-group.json"))
	}
	for _, part := range parts {
		for li := range p.lods {
			paths = append(paths, p.lodPath(model, part.Name, li))
		}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return &errs.CollisionError{Path: path}
		}
	}
	return nil
}

func (p *Pipeline) lodPath(model, part string, lod int) string {
	name := model
	if part != "" {
		name += "-" + part
	}
	return filepath.Join(p.outDir, fmt.Sprintf("%s.LOD%d.glb", name, lod))
}

func (p *Pipeline) runPart(ctx context.Context, model, stage string, part *splitgraph.Part, invoker *simplify.Invoker, combos []simplify.Combo, cache *texcache.Cache, meta *metadata) error {
	encoded, err := surgeon.EncodeGLB(part.Doc)
	if err != nil {
		return err
	}
	staged := filepath.Join(stage, partFileName(part.Name))
	if err := os.WriteFile(staged, encoded, 0o644); err != nil {
		return err
	}
	input, err := os.ReadFile(staged)
	if err != nil {
		return err
	}

	results, err := invoker.Run(ctx, input, combos)
	if err != nil {
		return err
	}

	for li, lod := range p.lods {
		// Each LOD works on a private decode of its combination's
		// output, so surgery for one LOD never leaks into another
		// sharing the same engine run.
		lodDoc, err := surgeon.DecodeGLB(results[lod.ComboIndex])
		if err != nil {
			return fmt.Errorf("engine produced unreadable document: %w", err)
		}
		opts := surgeon.Options{
			Resize:    lod.Resize,
			Embed:     lod.Embed,
			Generator: "model-splitter " + Version,
		}
		if err := surgeon.Materialize(lodDoc, opts, cache, p.log); err != nil {
			return err
		}
		path := p.lodPath(model, part.Name, li)
		n, err := surgeon.WriteGLB(lodDoc, path, p.cfg.Output.Force)
		if err != nil {
			return err
		}
		p.log.Infow("LOD written", "file", filepath.Base(path), "ratio", lod.Ratio, "bytes", n)
		meta.addLOD(part, LODEntry{File: filepath.Base(path), LODRatio: lod.Ratio, Bytes: n})
	}
	return nil
}

func partFileName(name string) string {
	if name == "" {
		return "model.glb"
	}
	return name + ".glb"
}

func buildGroup(model string, parts []splitgraph.Part, instances []splitgraph.Instance) *splitgraph.Group {
	group := &splitgraph.Group{
		Sources:   make([]string, len(parts)),
		Instances: instances,
	}
	bounds := make([]m.AABB, len(parts))
	for i, part := range parts {
		group.Sources[i] = model + "-" + part.Name
		bounds[i] = part.Bounds
	}
	group.AggregateBounds(bounds)
	return group
}
