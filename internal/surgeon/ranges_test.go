package surgeon

import (
	"bytes"
	"testing"
)

func TestRebuildNoReplacements(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	views := []ViewSpan{
		{Index: 0, Offset: 0, Length: 4},
		{Index: 1, Offset: 6, Length: 4},
	}

	out, remap, err := Rebuild(data, views, nil)
	if err != nil {
		t.Fatalf("Rebuild() error: %v", err)
	}

	// Bytes 4..6 are referenced by no view: excised.
	want := []byte{0, 1, 2, 3, 6, 7, 8, 9}
	if !bytes.Equal(out, want) {
		t.Errorf("out = %v, want %v", out, want)
	}
	if remap[0] != (Remapped{0, 4}) {
		t.Errorf("remap[0] = %+v, want {0 4}", remap[0])
	}
	if remap[1] != (Remapped{4, 4}) {
		t.Errorf("remap[1] = %+v, want {4 4}", remap[1])
	}
}

func TestRebuildEmbeddedReplacement(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	views := []ViewSpan{
		{Index: 0, Offset: 0, Length: 4},
		{Index: 1, Offset: 4, Length: 3},
		{Index: 2, Offset: 7, Length: 3},
	}
	repl := map[int]Replacement{
		1: {Data: []byte{99, 98}},
	}

	out, remap, err := Rebuild(data, views, repl)
	if err != nil {
		t.Fatalf("Rebuild() error: %v", err)
	}

	// Retained ranges first, replacement appended after.
	want := []byte{0, 1, 2, 3, 7, 8, 9, 99, 98}
	if !bytes.Equal(out, want) {
		t.Errorf("out = %v, want %v", out, want)
	}
	if remap[0] != (Remapped{0, 4}) {
		t.Errorf("remap[0] = %+v", remap[0])
	}
	if remap[2] != (Remapped{4, 3}) {
		t.Errorf("remap[2] = %+v, want {4 3}", remap[2])
	}
	if remap[1] != (Remapped{7, 2}) {
		t.Errorf("remap[1] = %+v, want {7 2}", remap[1])
	}
}

func TestRebuildExternalReplacement(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5}
	views := []ViewSpan{
		{Index: 0, Offset: 0, Length: 2},
		{Index: 1, Offset: 2, Length: 4},
	}
	repl := map[int]Replacement{
		1: {External: true},
	}

	out, remap, err := Rebuild(data, views, repl)
	if err != nil {
		t.Fatalf("Rebuild() error: %v", err)
	}
	if !bytes.Equal(out, []byte{0, 1}) {
		t.Errorf("out = %v, want [0 1]", out)
	}
	if remap[1] != (Remapped{}) {
		t.Errorf("remap[1] = %+v, want zero/zero", remap[1])
	}
}

func TestRebuildOverlappingRetained(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	views := []ViewSpan{
		{Index: 0, Offset: 0, Length: 4},
		{Index: 1, Offset: 2, Length: 4}, // overlaps view 0
		{Index: 2, Offset: 6, Length: 2},
	}

	out, remap, err := Rebuild(data, views, nil)
	if err != nil {
		t.Fatalf("Rebuild() error: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("out = %v, want full buffer retained", out)
	}
	if remap[1] != (Remapped{2, 4}) {
		t.Errorf("remap[1] = %+v, want {2 4}", remap[1])
	}
}

func TestRebuildLengthInvariant(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	views := []ViewSpan{
		{Index: 0, Offset: 10, Length: 20},
		{Index: 1, Offset: 40, Length: 10},
		{Index: 2, Offset: 60, Length: 30},
	}
	repl := map[int]Replacement{
		0: {Data: make([]byte, 5)},
		2: {Data: make([]byte, 7)},
	}

	out, remap, err := Rebuild(data, views, repl)
	if err != nil {
		t.Fatalf("Rebuild() error: %v", err)
	}

	// New length = retained (view 1 only) + replacements.
	if len(out) != 10+5+7 {
		t.Errorf("len(out) = %d, want 22", len(out))
	}

	// No remapped view exceeds the new buffer, no two views overlap.
	type span struct{ start, end int }
	var spans []span
	for idx, r := range remap {
		if r.Offset+r.Length > len(out) {
			t.Errorf("view %d [%d, %d) exceeds buffer of %d", idx, r.Offset, r.Offset+r.Length, len(out))
		}
		if r.Length > 0 {
			spans = append(spans, span{r.Offset, r.Offset + r.Length})
		}
	}
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			if a.start < b.end && b.start < a.end {
				t.Errorf("views overlap: %+v and %+v", a, b)
			}
		}
	}
}

func TestRebuildOutOfRangeView(t *testing.T) {
	data := []byte{0, 1, 2}
	views := []ViewSpan{{Index: 0, Offset: 2, Length: 5}}
	if _, _, err := Rebuild(data, views, nil); err == nil {
		t.Error("Rebuild() with out-of-range view should fail")
	}
}
