package imageops

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func TestMetadata(t *testing.T) {
	data := encodePNG(t, 64, 32)
	w, h, err := Metadata(data)
	if err != nil {
		t.Fatalf("Metadata() error: %v", err)
	}
	if w != 64 || h != 32 {
		t.Errorf("Metadata() = %dx%d, want 64x32", w, h)
	}
}

func TestMetadataInvalid(t *testing.T) {
	if _, _, err := Metadata([]byte("not an image")); err == nil {
		t.Error("Metadata() on garbage should fail")
	}
}

func TestResize(t *testing.T) {
	data := encodePNG(t, 64, 64)
	out, err := Resize(data, 16, 16)
	if err != nil {
		t.Fatalf("Resize() error: %v", err)
	}
	w, h, err := Metadata(out)
	if err != nil {
		t.Fatalf("Metadata(resized) error: %v", err)
	}
	if w != 16 || h != 16 {
		t.Errorf("resized dimensions = %dx%d, want 16x16", w, h)
	}
}

func TestResizeInvalidTarget(t *testing.T) {
	data := encodePNG(t, 8, 8)
	if _, err := Resize(data, 0, 16); err == nil {
		t.Error("Resize() with zero width should fail")
	}
}
