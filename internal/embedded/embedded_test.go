package embedded

import (
	"bytes"
	"encoding/base64"
	"testing"
)

// fakeJPEG builds a marker-delimited stream of exactly size bytes whose
// body cannot collide with the start/end markers.
func fakeJPEG(size int) []byte {
	if size < 6 {
		panic("too small")
	}
	out := make([]byte, size)
	copy(out, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	for i := 4; i < size-2; i++ {
		out[i] = byte(i % 0x70)
	}
	out[size-2], out[size-1] = 0xFF, 0xD9
	return out
}

func fakePNG(size int) []byte {
	out := make([]byte, size)
	copy(out, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
	for i := 8; i < size-8; i++ {
		out[i] = byte(i % 0x60)
	}
	copy(out[size-8:], []byte("IEND"))
	copy(out[size-4:], []byte{1, 2, 3, 4}) // CRC placeholder
	return out
}

func TestScanJPEGLargestWins(t *testing.T) {
	small := fakeJPEG(10 * 1024)
	large := fakeJPEG(200 * 1024)

	buf := bytes.Repeat([]byte{0xAB}, 512)
	buf = append(buf, small...)
	buf = append(buf, bytes.Repeat([]byte{0xCD}, 1024)...)
	buf = append(buf, large...)
	buf = append(buf, 0xEE)

	got := Scan(buf, KindJPEG)
	if !bytes.Equal(got, large) {
		t.Fatalf("Scan returned %d bytes, want the %d-byte candidate", len(got), len(large))
	}
}

func TestScanJPEGOrderIndependent(t *testing.T) {
	small := fakeJPEG(2 * 1024)
	large := fakeJPEG(64 * 1024)

	buf := append([]byte{}, large...)
	buf = append(buf, small...)

	got := Scan(buf, KindJPEG)
	if !bytes.Equal(got, large) {
		t.Fatalf("Scan returned %d bytes, want the large candidate first in the buffer", len(got))
	}
}

func TestScanPNG(t *testing.T) {
	png := fakePNG(4 * 1024)
	buf := append(bytes.Repeat([]byte{0x01}, 300), png...)
	buf = append(buf, bytes.Repeat([]byte{0x02}, 300)...)

	got := Scan(buf, KindPNG)
	if !bytes.Equal(got, png) {
		t.Fatalf("Scan returned %d bytes, want %d", len(got), len(png))
	}
}

func TestScanNoMatch(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		kind Kind
	}{
		{"Empty buffer", nil, KindJPEG},
		{"No markers", bytes.Repeat([]byte{0x42}, 4096), KindJPEG},
		{"Start without end", append([]byte{0xFF, 0xD8, 0xFF}, bytes.Repeat([]byte{0}, 1024)...), KindJPEG},
		{"Candidate below minimum", append(append([]byte{0xFF, 0xD8, 0xFF}, 0x11), []byte{0xFF, 0xD9}...), KindJPEG},
		{"No PNG", bytes.Repeat([]byte{0x42}, 4096), KindPNG},
		{"No TIFF", bytes.Repeat([]byte{0x42}, 4096), KindTIFF},
		{"No XMP", []byte("<x:xmpmeta></x:xmpmeta>"), KindXMP},
		{"Unknown kind", fakeJPEG(1024), Kind("bogus")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Scan(tt.data, tt.kind); got != nil {
				t.Errorf("Scan() = %d bytes, want nil", len(got))
			}
		})
	}
}

func TestScanTIFF(t *testing.T) {
	payload := append([]byte{'M', 'M', 0x00, 0x2A}, bytes.Repeat([]byte{0x33}, 2048)...)
	buf := append(bytes.Repeat([]byte{0x10}, 600), payload...)

	got := Scan(buf, KindTIFF)
	if !bytes.HasPrefix(got, []byte{'M', 'M', 0x00, 0x2A}) {
		t.Fatal("suffix does not start at the TIFF signature")
	}
	if len(got) != len(payload) {
		t.Errorf("suffix length = %d, want %d", len(got), len(payload))
	}
}

func TestScanTIFFSkipsHostSignature(t *testing.T) {
	// A TIFF-based host (e.g. CR2) starts with the signature itself; the
	// scan must find the embedded one, not return the whole file.
	embeddedTIFF := append([]byte{'I', 'I', 0x2A, 0x00}, bytes.Repeat([]byte{0x44}, 1024)...)
	host := append([]byte{'I', 'I', 0x2A, 0x00, 0x10, 0, 0, 0}, bytes.Repeat([]byte{0x55}, 512)...)
	buf := append(host, embeddedTIFF...)

	got := Scan(buf, KindTIFF)
	if len(got) != len(embeddedTIFF) {
		t.Fatalf("suffix length = %d, want %d", len(got), len(embeddedTIFF))
	}
}

func TestScanXMP(t *testing.T) {
	payload := fakeJPEG(2048)
	encoded := base64.StdEncoding.EncodeToString(payload)
	// Real XMP packets wrap the base64 across lines.
	wrapped := ""
	for i := 0; i < len(encoded); i += 72 {
		end := i + 72
		if end > len(encoded) {
			end = len(encoded)
		}
		wrapped += encoded[i:end] + "\n   "
	}
	doc := "<x:xmpmeta><xapGImg:image>" + wrapped + "</xapGImg:image></x:xmpmeta>"

	got := Scan([]byte(doc), KindXMP)
	if !bytes.Equal(got, payload) {
		t.Fatalf("XMP decode mismatch: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestScanXMPAlternateTag(t *testing.T) {
	payload := fakeJPEG(1024)
	doc := "<xmpGImg:image>" + base64.StdEncoding.EncodeToString(payload) + "</xmpGImg:image>"
	if got := Scan([]byte(doc), KindXMP); !bytes.Equal(got, payload) {
		t.Fatal("alternate XMP tag not handled")
	}
}
