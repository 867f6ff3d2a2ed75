// Package surgeon materializes a single LOD: it rewrites the
// document's buffer storage, removes graph elements made unused by
// texture externalization, and re-shifts every dependent index.
package surgeon

import (
	"fmt"
	"sort"
)

// ViewSpan is one buffer view's byte range within a single buffer.
type ViewSpan struct {
	Index  int // buffer view index in the document
	Offset int
	Length int
}

// Replacement overrides a buffer view's content. Data is appended to
// the rebuilt buffer when embedding; External removes the content
// entirely (the view is zeroed).
type Replacement struct {
	Data     []byte
	External bool
}

// Remapped is a view's offset and length in the rebuilt buffer.
type Remapped struct {
	Offset int
	Length int
}

type byteRange struct {
	start, end int // half-open
}

// Rebuild computes a buffer's new backing bytes after the given
// replacements. It never mutates data: it returns freshly allocated
// bytes plus a remap table covering every view in views. Retained
// ranges are copied in their original order, then embedded replacement
// data is appended in view-index order.
func Rebuild(data []byte, views []ViewSpan, repl map[int]Replacement) ([]byte, map[int]Remapped, error) {
	for _, v := range views {
		if v.Offset < 0 || v.Length < 0 || v.Offset+v.Length > len(data) {
			return nil, nil, fmt.Errorf("buffer view %d range [%d, %d) outside buffer of %d bytes",
				v.Index, v.Offset, v.Offset+v.Length, len(data))
		}
	}

	// Maximal disjoint retained ranges: every view not being replaced,
	// merged where contiguous or overlapping.
	var retained []byteRange
	for _, v := range views {
		if _, ok := repl[v.Index]; ok {
			continue
		}
		retained = append(retained, byteRange{v.Offset, v.Offset + v.Length})
	}
	sort.Slice(retained, func(i, j int) bool { return retained[i].start < retained[j].start })
	merged := retained[:0]
	for _, r := range retained {
		if n := len(merged); n > 0 && r.start <= merged[n-1].end {
			if r.end > merged[n-1].end {
				merged[n-1].end = r.end
			}
			continue
		}
		merged = append(merged, r)
	}

	// The complement of the retained ranges is the set of gaps excised
	// from the buffer.
	var gapsBefore []byteRange
	cursor := 0
	for _, r := range merged {
		if r.start > cursor {
			gapsBefore = append(gapsBefore, byteRange{cursor, r.start})
		}
		cursor = r.end
	}
	if cursor < len(data) {
		gapsBefore = append(gapsBefore, byteRange{cursor, len(data)})
	}

	retainedTotal := 0
	for _, r := range merged {
		retainedTotal += r.end - r.start
	}
	replacedTotal := 0
	for _, r := range repl {
		replacedTotal += len(r.Data)
	}

	out := make([]byte, 0, retainedTotal+replacedTotal)
	for _, r := range merged {
		out = append(out, data[r.start:r.end]...)
	}

	remap := make(map[int]Remapped, len(views))
	for _, v := range views {
		if _, ok := repl[v.Index]; ok {
			continue
		}
		shift := 0
		for _, g := range gapsBefore {
			if g.start < v.Offset {
				shift += g.end - g.start
			}
		}
		remap[v.Index] = Remapped{Offset: v.Offset - shift, Length: v.Length}
	}

	// Embedded replacements land after the retained ranges, in buffer
	// view index order.
	replaced := make([]int, 0, len(repl))
	for idx := range repl {
		replaced = append(replaced, idx)
	}
	sort.Ints(replaced)
	for _, idx := range replaced {
		r := repl[idx]
		if r.External {
			remap[idx] = Remapped{}
			continue
		}
		remap[idx] = Remapped{Offset: len(out), Length: len(r.Data)}
		out = append(out, r.Data...)
	}

	return out, remap, nil
}
