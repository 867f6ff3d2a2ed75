// Package contenthash fingerprints binary blobs. The fingerprint is a
// sha256 hex digest, optionally suffixed with a file extension sniffed
// from the blob's magic bytes so cache files keep a usable extension.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/h2non/filetype/matchers"
	"github.com/h2non/filetype/types"
)

// ktx2Magic is the KTX2 container identifier.
var ktx2Magic = []byte{0xAB, 0x4B, 0x54, 0x58, 0x20, 0x32, 0x30, 0xBB, 0x0D, 0x0A, 0x1A, 0x0A}

func ktx2(buf []byte) bool {
	if len(buf) < len(ktx2Magic) {
		return false
	}
	for i, b := range ktx2Magic {
		if buf[i] != b {
			return false
		}
	}
	return true
}

type signature struct {
	kind  types.Type
	match matchers.Matcher
}

// signatures is checked in order; the first match wins.
var signatures = []signature{
	{matchers.TypePng, matchers.Png},
	{matchers.TypeJpeg, matchers.Jpeg},
	{matchers.TypeGif, matchers.Gif},
	{matchers.TypeBmp, matchers.Bmp},
	{types.NewType("ktx2", "image/ktx2"), ktx2},
}

// Sum returns the hex-encoded sha256 digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SumSniffed returns Sum(data) with a recognized image-container
// extension appended when the leading bytes match a known signature.
// Unrecognized content yields the bare digest.
func SumSniffed(data []byte) string {
	digest := Sum(data)
	for _, sig := range signatures {
		if sig.match(data) {
			return digest + "." + sig.kind.Extension
		}
	}
	return digest
}
