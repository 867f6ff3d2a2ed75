package simplify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"go.uber.org/zap"

	"github.com/playkostudios/model-splitter/internal/config"
	"github.com/playkostudios/model-splitter/internal/errs"
)

// fakeEngine writes a shell script that copies its input document to
// the output path and records the invocation.
func fakeEngine(t *testing.T, countFile string, fail bool) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine script requires a POSIX shell")
	}

	script := "#!/bin/sh\n" +
		"echo line >> " + countFile + "\n" +
		"in=\"\"; out=\"\"\n" +
		"while [ $# -gt 0 ]; do\n" +
		"  case $1 in\n" +
		"    -i) in=$2; shift;;\n" +
		"    -o) out=$2; shift;;\n" +
		"  esac\n" +
		"  shift\n" +
		"done\n"
	if fail {
		script += "echo 'simplification exploded' >&2\nexit 3\n"
	} else {
		script += "echo 'Warning: sample warning'\ncp \"$in\" \"$out\"\n"
	}

	path := filepath.Join(t.TempDir(), "fake-engine")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake engine: %v", err)
	}
	return path
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("reading count file: %v", err)
	}
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}

func parseLODs(t *testing.T, tokens ...string) []config.LOD {
	t.Helper()
	lods, err := config.ParseLODs(tokens, config.LODDefaults{
		TextureSize:    "keep",
		MergeMaterials: true,
		Compression:    "disabled",
	})
	if err != nil {
		t.Fatalf("parsing LODs: %v", err)
	}
	return lods
}

func TestCombosDedup(t *testing.T) {
	lods := parseLODs(t, "1", "1", "0.5")
	combos := Combos(lods)
	if len(combos) != 2 {
		t.Fatalf("len(combos) = %d, want 2", len(combos))
	}
	if combos[0].Ratio != 1 || combos[1].Ratio != 0.5 {
		t.Errorf("combo ratios = %g, %g, want 1, 0.5", combos[0].Ratio, combos[1].Ratio)
	}
}

func TestComboArgs(t *testing.T) {
	tests := []struct {
		name  string
		combo Combo
		want  []string
	}{
		{
			name:  "plain",
			combo: Combo{Ratio: 0.5, MergeMaterials: true, Compression: config.CompressionDisabled},
			want:  []string{"-i", "in.glb", "-o", "out.glb", "-si", "0.5"},
		},
		{
			name: "all flags",
			combo: Combo{
				Ratio:         1,
				KeepHierarchy: true,
				Aggressive:    true,
				Compression:   config.CompressionUASTC,
				Resize:        config.ResizePolicy{Kind: config.ResizePercent, Percent: 25},
			},
			want: []string{"-i", "in.glb", "-o", "out.glb", "-si", "1", "-sa", "-kn", "-km", "-tc", "-tu", "-ts", "0.25"},
		},
		{
			name: "absolute resize with etc1s",
			combo: Combo{
				Ratio:          0.25,
				MergeMaterials: true,
				Compression:    config.CompressionETC1S,
				Resize:         config.ResizePolicy{Kind: config.ResizeAbsolute, Width: 512, Height: 256},
			},
			want: []string{"-i", "in.glb", "-o", "out.glb", "-si", "0.25", "-tc", "-tl", "512"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.combo.Args("in.glb", "out.glb")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunOncePerCombo(t *testing.T) {
	countFile := filepath.Join(t.TempDir(), "count")
	engine := fakeEngine(t, countFile, false)

	lods := parseLODs(t, "1", "1", "0.5")
	combos := Combos(lods)

	inv := NewInvoker(engine, 2, zap.NewNop().Sugar())
	input := []byte("fake-document")
	results, err := inv.Run(context.Background(), input, combos)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if got := countLines(t, countFile); got != 2 {
		t.Errorf("engine invoked %d times, want 2", got)
	}
	for i, res := range results {
		if string(res) != string(input) {
			t.Errorf("results[%d] = %q, want engine passthrough", i, res)
		}
	}
}

func TestRunEngineFailure(t *testing.T) {
	countFile := filepath.Join(t.TempDir(), "count")
	engine := fakeEngine(t, countFile, true)

	inv := NewInvoker(engine, 1, zap.NewNop().Sugar())
	_, err := inv.Run(context.Background(), []byte("doc"), []Combo{{Ratio: 1}})

	var toolErr *errs.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Run() error = %v, want ToolError", err)
	}
	if toolErr.Detail != "simplification exploded" {
		t.Errorf("Detail = %q, want captured stderr", toolErr.Detail)
	}
}

func TestRunMissingEngine(t *testing.T) {
	inv := NewInvoker(filepath.Join(t.TempDir(), "no-such-engine"), 1, zap.NewNop().Sugar())
	if _, err := inv.Run(context.Background(), []byte("doc"), []Combo{{Ratio: 1}}); err == nil {
		t.Error("Run() with missing engine should fail")
	}
}
