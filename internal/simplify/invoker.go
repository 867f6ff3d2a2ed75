package simplify

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/playkostudios/model-splitter/internal/errs"
)

// Invoker runs the external simplification engine as a subprocess.
type Invoker struct {
	// Path is the engine binary, resolved via PATH when bare.
	Path string
	// Jobs bounds concurrent invocations. Values below 1 mean 1.
	Jobs int

	log *zap.SugaredLogger
}

// NewInvoker returns an Invoker for the given engine binary.
func NewInvoker(path string, jobs int, log *zap.SugaredLogger) *Invoker {
	if jobs < 1 {
		jobs = 1
	}
	return &Invoker{Path: path, Jobs: jobs, log: log}
}

// Run invokes the engine once per combo and returns the simplified
// document bytes per combo, in combo order. Distinct combos run
// concurrently, each in its own working directory; all results are
// joined before returning.
func (inv *Invoker) Run(ctx context.Context, input []byte, combos []Combo) ([][]byte, error) {
	results := make([][]byte, len(combos))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(inv.Jobs)
	for i, combo := range combos {
		i, combo := i, combo
		g.Go(func() error {
			out, err := inv.invoke(ctx, input, combo)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// invoke performs one engine run in a private temporary directory.
func (inv *Invoker) invoke(ctx context.Context, input []byte, combo Combo) ([]byte, error) {
	workDir, err := os.MkdirTemp("", "model-splitter-engine-*")
	if err != nil {
		return nil, fmt.Errorf("creating engine working directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	inPath := filepath.Join(workDir, "input.glb")
	outPath := filepath.Join(workDir, "output.glb")
	if err := os.WriteFile(inPath, input, 0o644); err != nil {
		return nil, fmt.Errorf("staging engine input: %w", err)
	}

	inv.log.Debugf("simplifying (%s)", combo)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, inv.Path, combo.Args(inPath, outPath)...)
	cmd.Dir = workDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	inv.relay(&stdout)
	if runErr != nil {
		return nil, &errs.ToolError{
			Tool:   inv.Path,
			Detail: strings.TrimSpace(stderr.String()),
			Err:    runErr,
		}
	}
	inv.relay(&stderr)

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &errs.ToolError{
			Tool:   inv.Path,
			Detail: "engine exited successfully but produced no output document",
			Err:    err,
		}
	}
	return out, nil
}

// relay forwards engine log lines through the pipeline logger,
// classified by their leading token.
func (inv *Invoker) relay(buf *bytes.Buffer) {
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Warning"):
			inv.log.Warnf("engine: %s", line)
		case strings.HasPrefix(line, "Error"):
			inv.log.Errorf("engine: %s", line)
		default:
			inv.log.Infof("engine: %s", line)
		}
	}
}
