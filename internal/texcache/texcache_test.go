package texcache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/playkostudios/model-splitter/internal/config"
	"github.com/playkostudios/model-splitter/pkg/contenthash"
)

// fakeEngine resizes by truncating/padding so output depends only on
// the requested size unless keyed otherwise, and counts invocations.
type fakeEngine struct {
	metaW, metaH int
	metaErr      error
	resizeCalls  int
	metaCalls    int
	// output returns the resized bytes; defaults to a size-tagged copy
	// of the input.
	output func(data []byte, w, h int) []byte
}

func (f *fakeEngine) Metadata(data []byte) (int, int, error) {
	f.metaCalls++
	return f.metaW, f.metaH, f.metaErr
}

func (f *fakeEngine) Resize(data []byte, w, h int) ([]byte, error) {
	f.resizeCalls++
	if f.output != nil {
		return f.output(data, w, h), nil
	}
	return append([]byte(fmt.Sprintf("%dx%d:", w, h)), data...), nil
}

func newTestCache(t *testing.T, engine Engine) (*Cache, string) {
	t.Helper()
	dir := t.TempDir()
	c := New(dir, engine, zap.NewNop().Sugar())
	t.Cleanup(c.Cleanup)
	return c, dir
}

func absolute(w, h int) config.ResizePolicy {
	return config.ResizePolicy{Kind: config.ResizeAbsolute, Width: w, Height: h}
}

func TestResizeIdempotentCaching(t *testing.T) {
	engine := &fakeEngine{}
	c, _ := newTestCache(t, engine)

	data := []byte("texture-bytes")
	fp := contenthash.Sum(data)

	first, err := c.Resize(absolute(32, 32), data, fp, true)
	if err != nil {
		t.Fatalf("first Resize() error: %v", err)
	}
	second, err := c.Resize(absolute(32, 32), data, fp, true)
	if err != nil {
		t.Fatalf("second Resize() error: %v", err)
	}

	if engine.resizeCalls != 1 {
		t.Errorf("engine invoked %d times, want 1", engine.resizeCalls)
	}
	if first.Fingerprint != second.Fingerprint {
		t.Errorf("fingerprints differ: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Error("cached bytes differ between hits")
	}
}

func TestResizeOutputFingerprintMerge(t *testing.T) {
	// Two different inputs that resize to identical output.
	engine := &fakeEngine{output: func(_ []byte, w, h int) []byte {
		return []byte(fmt.Sprintf("constant-%dx%d", w, h))
	}}
	c, dir := newTestCache(t, engine)

	a := []byte("input-a")
	b := []byte("input-b")

	ra, err := c.Resize(absolute(16, 16), a, contenthash.Sum(a), false)
	if err != nil {
		t.Fatalf("Resize(a) error: %v", err)
	}
	rb, err := c.Resize(absolute(16, 16), b, contenthash.Sum(b), false)
	if err != nil {
		t.Fatalf("Resize(b) error: %v", err)
	}

	if ra.Fingerprint != rb.Fingerprint {
		t.Errorf("merged fingerprints differ: %s vs %s", ra.Fingerprint, rb.Fingerprint)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("output dir holds %d files, want 1", len(entries))
	}
}

func TestResizeKeepEmbed(t *testing.T) {
	engine := &fakeEngine{}
	c, dir := newTestCache(t, engine)

	data := []byte("original")
	fp := contenthash.Sum(data)
	res, err := c.Resize(config.ResizePolicy{Kind: config.ResizeKeep}, data, fp, true)
	if err != nil {
		t.Fatalf("Resize() error: %v", err)
	}
	if !bytes.Equal(res.Data, data) {
		t.Error("keep+embed should return the input unchanged")
	}
	if engine.resizeCalls != 0 {
		t.Errorf("engine invoked %d times, want 0", engine.resizeCalls)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("keep+embed wrote %d files, want 0", len(entries))
	}
}

func TestResizeKeepExternalWriteOnce(t *testing.T) {
	engine := &fakeEngine{}
	c, dir := newTestCache(t, engine)

	data := []byte("original")
	fp := contenthash.Sum(data)
	for i := 0; i < 3; i++ {
		if _, err := c.Resize(config.ResizePolicy{Kind: config.ResizeKeep}, data, fp, false); err != nil {
			t.Fatalf("Resize() error: %v", err)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("output dir holds %d files, want 1", len(entries))
	}
	got, err := os.ReadFile(filepath.Join(dir, fp))
	if err != nil {
		t.Fatalf("reading kept texture: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("kept texture content mismatch")
	}
}

func TestResizePercentNormalization(t *testing.T) {
	engine := &fakeEngine{metaW: 100, metaH: 50}
	c, _ := newTestCache(t, engine)

	data := []byte("pixels")
	fp := contenthash.Sum(data)
	if _, err := c.Resize(config.ResizePolicy{Kind: config.ResizePercent, Percent: 50}, data, fp, true); err != nil {
		t.Fatalf("Resize() error: %v", err)
	}
	if engine.metaCalls != 1 {
		t.Errorf("metadata queried %d times, want 1", engine.metaCalls)
	}
	if engine.resizeCalls != 1 {
		t.Fatalf("engine invoked %d times, want 1", engine.resizeCalls)
	}

	// A 100% resize collapses to keep: no engine call, input returned.
	res, err := c.Resize(config.ResizePolicy{Kind: config.ResizePercent, Percent: 100}, data, fp, true)
	if err != nil {
		t.Fatalf("Resize(100%%) error: %v", err)
	}
	if engine.resizeCalls != 1 {
		t.Errorf("100%% resize invoked the engine")
	}
	if !bytes.Equal(res.Data, data) {
		t.Error("100% resize should return the input unchanged")
	}
}

func TestResizePercentMissingMetadata(t *testing.T) {
	engine := &fakeEngine{metaErr: fmt.Errorf("no header")}
	c, _ := newTestCache(t, engine)

	data := []byte("pixels")
	_, err := c.Resize(config.ResizePolicy{Kind: config.ResizePercent, Percent: 50}, data, contenthash.Sum(data), true)
	if err == nil {
		t.Fatal("Resize() with unavailable metadata should fail")
	}
}

func TestTierPromotion(t *testing.T) {
	engine := &fakeEngine{}
	c, dir := newTestCache(t, engine)

	data := []byte("texture")
	fp := contenthash.Sum(data)

	// First consumer embeds: result staged in the temp folder only.
	res, err := c.Resize(absolute(8, 8), data, fp, true)
	if err != nil {
		t.Fatalf("Resize(embed) error: %v", err)
	}
	// The staging folder lives under the output dir so promotion is a
	// same-filesystem rename, but no texture file surfaces yet.
	if filepath.Dir(c.tempDir) != dir {
		t.Fatalf("staging folder %q not under output dir %q", c.tempDir, dir)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if !e.IsDir() {
			t.Fatalf("embed staged %q into output dir", e.Name())
		}
	}

	// Second consumer needs the file externally: promoted, not resized again.
	res2, err := c.Resize(absolute(8, 8), data, fp, false)
	if err != nil {
		t.Fatalf("Resize(external) error: %v", err)
	}
	if engine.resizeCalls != 1 {
		t.Errorf("engine invoked %d times, want 1", engine.resizeCalls)
	}
	if res2.Fingerprint != res.Fingerprint {
		t.Errorf("fingerprint changed on promotion")
	}
	if _, err := os.Stat(filepath.Join(dir, res.Fingerprint)); err != nil {
		t.Errorf("promoted file missing: %v", err)
	}
}

func TestCleanupRemovesTempFolder(t *testing.T) {
	engine := &fakeEngine{}
	c, _ := newTestCache(t, engine)

	data := []byte("texture")
	if _, err := c.Resize(absolute(8, 8), data, contenthash.Sum(data), true); err != nil {
		t.Fatalf("Resize() error: %v", err)
	}
	temp := c.tempDir
	if temp == "" {
		t.Fatal("temp folder was not created for an embedded result")
	}

	c.Cleanup()
	if _, err := os.Stat(temp); !os.IsNotExist(err) {
		t.Errorf("temp folder still exists after Cleanup")
	}
	if c.tempDir != "" {
		t.Error("tempDir not reset after Cleanup")
	}
}

func TestStoreExternalNonRegularDestination(t *testing.T) {
	engine := &fakeEngine{}
	c, dir := newTestCache(t, engine)

	fp := "occupied"
	if err := os.Mkdir(filepath.Join(dir, fp), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := c.StoreExternal([]byte("data"), fp); err == nil {
		t.Error("StoreExternal() over a directory should fail")
	}
}
