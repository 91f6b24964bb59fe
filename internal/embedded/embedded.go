// Package embedded scans opaque files for embedded raster previews.
//
// Camera RAW files and several design formats carry one or more complete
// JPEG/PNG/TIFF streams (or a base64 XMP thumbnail) at unpredictable
// offsets. The scanner performs a bounded byte-pattern search and returns
// the best candidate. Finding nothing is an expected outcome, not an error.
//
// When several candidates exist the largest non-overlapping match wins:
// such containers typically embed a tiny index thumbnail plus one large
// "hero" preview, and size is the only signal available. A file embedding
// an unrelated larger raster elsewhere would win incorrectly; no stronger
// signal has been identified, so the heuristic is kept and documented.
package embedded

import (
	"bytes"
	"encoding/base64"
)

// Kind selects the embedded stream type to search for.
type Kind string

const (
	KindJPEG Kind = "jpeg"
	KindPNG  Kind = "png"
	KindTIFF Kind = "tiff"
	KindXMP  Kind = "xmp"
)

// MaxScanBytes bounds the scanned window. Anything past this offset is
// ignored; RAW previews live in the first few megabytes in practice.
const MaxScanBytes = 64 << 20

// minCandidate discards matches too small to be a usable preview (marker
// pairs occur by chance in compressed data).
const minCandidate = 256

var (
	jpegStart = []byte{0xFF, 0xD8, 0xFF}
	jpegEnd   = []byte{0xFF, 0xD9}
	pngStart  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	pngEnd    = []byte("IEND")
	tiffLE    = []byte{'I', 'I', 0x2A, 0x00}
	tiffBE    = []byte{'M', 'M', 0x00, 0x2A}
)

// Scan searches data for an embedded stream of the given kind and returns
// its bytes, or nil when nothing usable is found.
func Scan(data []byte, kind Kind) []byte {
	if len(data) > MaxScanBytes {
		data = data[:MaxScanBytes]
	}
	switch kind {
	case KindJPEG:
		return scanDelimited(data, jpegStart, jpegEnd, 2)
	case KindPNG:
		return scanDelimited(data, pngStart, pngEnd, 8) // "IEND" + CRC
	case KindTIFF:
		return scanTIFF(data)
	case KindXMP:
		return scanXMP(data)
	}
	return nil
}

// scanDelimited repeatedly matches start..end marker pairs across the
// buffer and keeps the largest non-overlapping candidate. endSkip is how
// many bytes past the end marker's first byte belong to the stream.
func scanDelimited(data, start, end []byte, endSkip int) []byte {
	var best []byte
	pos := 0
	for pos < len(data) {
		s := bytes.Index(data[pos:], start)
		if s < 0 {
			break
		}
		s += pos
		e := bytes.Index(data[s+len(start):], end)
		if e < 0 {
			break
		}
		e += s + len(start) + endSkip
		if e > len(data) {
			break
		}
		if candidate := data[s:e]; len(candidate) >= minCandidate && len(candidate) > len(best) {
			best = candidate
		}
		pos = e
	}
	return best
}

// scanTIFF matches only the TIFF byte-order signature; the format has no
// reliable terminator, so the whole suffix is returned for a tolerant
// decoder to make sense of. The search starts at offset 1 so that a
// TIFF-based host file (CR2, NEF) does not match itself.
func scanTIFF(data []byte) []byte {
	if len(data) < 2 {
		return nil
	}
	le := bytes.Index(data[1:], tiffLE)
	be := bytes.Index(data[1:], tiffBE)
	idx := le
	if idx < 0 || (be >= 0 && be < idx) {
		idx = be
	}
	if idx < 0 {
		return nil
	}
	suffix := data[idx+1:]
	if len(suffix) < minCandidate {
		return nil
	}
	return suffix
}

// xmpImageTags are the element names XMP toolkits use for the base64
// thumbnail payload, in the order they are tried.
var xmpImageTags = []string{"xapGImg:image", "xmpGImg:image"}

// scanXMP locates the XMP thumbnail element and base64-decodes its
// whitespace-stripped content.
func scanXMP(data []byte) []byte {
	for _, tag := range xmpImageTags {
		open := []byte("<" + tag + ">")
		close := []byte("</" + tag + ">")
		s := bytes.Index(data, open)
		if s < 0 {
			continue
		}
		s += len(open)
		e := bytes.Index(data[s:], close)
		if e < 0 {
			continue
		}
		content := stripSpace(data[s : s+e])
		decoded := make([]byte, base64.StdEncoding.DecodedLen(len(content)))
		n, err := base64.StdEncoding.Decode(decoded, content)
		if err != nil || n < minCandidate {
			continue
		}
		return decoded[:n]
	}
	return nil
}

func stripSpace(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for _, c := range in {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			out = append(out, c)
		}
	}
	return out
}
