// model-splitter converts a single 3D scene into a family of LOD
// variants, with optional depth-splitting into instanced parts.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/playkostudios/model-splitter/internal/config"
	"github.com/playkostudios/model-splitter/internal/errs"
	"github.com/playkostudios/model-splitter/internal/logger"
	"github.com/playkostudios/model-splitter/internal/pipeline"
)

const (
	exitInvalidInput = 1
	exitCollision    = 2
	exitToolFailure  = 3
	exitInternal     = 4
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(exitInvalidInput)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(exitInternal)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) < 3 {
		printUsage()
		os.Exit(exitInvalidInput)
	}
	input, outDir, tokens := args[0], args[1], args[2:]

	lods, err := config.ParseLODs(tokens, cfg.Defaults)
	if err != nil {
		logger.Sugar.Errorf("invalid LOD request: %v", err)
		os.Exit(exitInvalidInput)
	}

	logger.Sugar.Infof("model-splitter %s", pipeline.Version)
	logger.Sugar.Debugf("config: %+v", cfg)

	p := pipeline.New(cfg, lods, input, outDir, logger.Sugar)
	if err := p.Run(context.Background()); err != nil {
		os.Exit(report(err))
	}
}

// report logs the terminal error and picks the exit code for its class.
func report(err error) int {
	var (
		collision *errs.CollisionError
		invalid   *errs.InvalidInputError
		tool      *errs.ToolError
	)
	switch {
	case errors.As(err, &collision):
		logger.Sugar.Errorf("%v", err)
		return exitCollision
	case errors.As(err, &invalid):
		logger.Sugar.Errorf("%v", err)
		return exitInvalidInput
	case errors.As(err, &tool):
		logger.Sugar.Errorf("external tool failed: %v", err)
		return exitToolFailure
	default:
		logger.Sugar.Errorf("pipeline failed: %v", err)
		return exitInternal
	}
}

func printUsage() {
	fmt.Println(`model-splitter - 3D scene LOD generator

Usage:
  model-splitter [flags] <input model> <output dir> <lod>...

Each <lod> is "ratio[:textureSize][:embed|external]":
  1             full quality, default texture handling
  0.5:50%       half the triangles, textures at half resolution
  0.25:128:embed  quarter quality, 128px textures embedded in the file

Flags:
  -engine path             simplification engine binary (default gltfpack)
  -jobs n                  concurrent engine invocations
  -force                   overwrite existing output files
  -texture-size s          default texture size (keep, N%, W or WxH)
  -embed-textures          embed textures by default
  -keep-hierarchy          keep scene hierarchy during simplification
  -no-material-merging     do not merge materials
  -aggressive              ignore simplification quality limits
  -texture-compression m   disabled, uastc or etc1s
  -split-depth n           split the scene into parts at node depth n
  -reset-position          reset part root positions
  -reset-rotation          reset part root rotations
  -reset-scale             reset part root scales
  -instance-group          write an instance-group file for split parts
  -config path             config file (default model-splitter.yaml)
  -debug                   debug logging
  -log-file path           also write logs to this file

Examples:
  model-splitter castle.glb out 1 0.5 0.25
  model-splitter -split-depth 1 -instance-group village.glb out 1:50%`)
}
