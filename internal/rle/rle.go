// Package rle implements the byte-oriented run-length scheme used by tiled
// layer data (PackBits framing: a literal run or a repeated byte per control
// code).
package rle

import "fmt"

// Unpack decodes src into a buffer of exactly size bytes. Decoding stops
// once size bytes are produced; producing fewer, or running past the end of
// src mid-run, is an error.
func Unpack(src []byte, size int) ([]byte, error) {
	dst := make([]byte, 0, size)
	i := 0
	for len(dst) < size {
		if i >= len(src) {
			return nil, fmt.Errorf("rle: truncated stream at byte %d (%d of %d decoded)", i, len(dst), size)
		}
		ctrl := src[i]
		i++
		switch {
		case ctrl < 0x80:
			// Literal run of ctrl+1 bytes.
			n := int(ctrl) + 1
			if i+n > len(src) {
				return nil, fmt.Errorf("rle: literal run of %d overruns input", n)
			}
			if len(dst)+n > size {
				return nil, fmt.Errorf("rle: literal run of %d overruns output of %d", n, size)
			}
			dst = append(dst, src[i:i+n]...)
			i += n
		case ctrl == 0x80:
			// No-op filler.
		default:
			// Repeat the next byte 257-ctrl times.
			n := 257 - int(ctrl)
			if i >= len(src) {
				return nil, fmt.Errorf("rle: repeat run missing value byte")
			}
			if len(dst)+n > size {
				return nil, fmt.Errorf("rle: repeat run of %d overruns output of %d", n, size)
			}
			v := src[i]
			i++
			for j := 0; j < n; j++ {
				dst = append(dst, v)
			}
		}
	}
	return dst, nil
}

// Pack encodes src with the same framing Unpack expects. Used by writers of
// synthetic fixtures and kept alongside Unpack so the two stay in sync.
func Pack(src []byte) []byte {
	var dst []byte
	i := 0
	for i < len(src) {
		// Find run length of identical bytes.
		run := 1
		for i+run < len(src) && src[i+run] == src[i] && run < 128 {
			run++
		}
		if run >= 2 {
			dst = append(dst, byte(257-run), src[i])
			i += run
			continue
		}
		// Collect a literal run up to the next repeat of 3+ or 128 bytes.
		start := i
		for i < len(src) && i-start < 128 {
			if i+2 < len(src) && src[i] == src[i+1] && src[i] == src[i+2] {
				break
			}
			i++
		}
		dst = append(dst, byte(i-start-1))
		dst = append(dst, src[start:i]...)
	}
	return dst
}
