package formats

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   string // descriptor name, "" for no match
	}{
		{"JPEG", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, "jpeg"},
		{"PNG", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}, "png"},
		{"GIF", []byte("GIF89a"), "gif"},
		{"WebP", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBPVP8 ")...), "webp"},
		{"BMP", []byte("BM\x36\x00"), "bmp"},
		{"PSD", []byte("8BPS\x00\x01"), "psd"},
		{"Chunk container", []byte("CSFCHUNK\x00\x00\x00\x00"), "clip"},
		{"Tiled project", []byte("MDPK\x00\x01"), "mdp"},
		{"Little-endian TIFF", []byte{'I', 'I', 0x2A, 0x00, 8, 0, 0, 0}, "tiff"},
		{"Big-endian TIFF", []byte{'M', 'M', 0x00, 0x2A, 0, 0, 0, 8}, "tiff"},
		{"CR2 beats plain TIFF", []byte{'I', 'I', 0x2A, 0x00, 0x10, 0, 0, 0, 'C', 'R', 2, 0}, "canon-raw"},
		{"Matroska", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}, "matroska"},
		{"AVI", append([]byte("RIFF\x00\x00\x00\x00"), []byte("AVI LIST")...), "avi"},
		{"HEIC", []byte("\x00\x00\x00\x18ftypheic"), "heif"},
		{"AVIF", []byte("\x00\x00\x00\x1cftypavif"), "avif"},
		{"Generic MP4", []byte("\x00\x00\x00\x18ftypisom"), "mp4"},
		{"Empty", nil, ""},
		{"One byte", []byte{0xFF}, ""},
		{"Garbage", []byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0, 0, 0, 0, 0}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sniff(tt.header)
			name := ""
			if got != nil {
				name = got.Name
			}
			if name != tt.want {
				t.Errorf("Sniff() = %q, want %q", name, tt.want)
			}
		})
	}
}

func TestByExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".jpg", "jpeg"},
		{"JPG", "jpeg"},
		{".SAI", "sai"},
		{".kra", "krita"},
		{".ora", "openraster"},
		{".nef", "nikon-raw"},
		{".xyz", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got := ByExtension(tt.ext)
			name := ""
			if got != nil {
				name = got.Name
			}
			if name != tt.want {
				t.Errorf("ByExtension(%q) = %q, want %q", tt.ext, name, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("Signature wins over extension", func(t *testing.T) {
		// A JPEG renamed to .png must still resolve as JPEG.
		path := write("mislabeled.png", []byte{0xFF, 0xD8, 0xFF, 0xE1, 0, 0, 0, 0})
		d, err := Resolve(path)
		if err != nil {
			t.Fatal(err)
		}
		if d == nil || d.Name != "jpeg" {
			t.Errorf("Resolve() = %v, want jpeg", d)
		}
	})

	t.Run("Extension fallback for opaque container", func(t *testing.T) {
		// Encrypted containers carry no plaintext magic.
		path := write("painting.sai", []byte{0x13, 0x37, 0xBE, 0xEF})
		d, err := Resolve(path)
		if err != nil {
			t.Fatal(err)
		}
		if d == nil || d.Name != "sai" {
			t.Errorf("Resolve() = %v, want sai", d)
		}
		if d.Strategy != StrategyExtractor {
			t.Errorf("Strategy = %q, want %q", d.Strategy, StrategyExtractor)
		}
	})

	t.Run("File shorter than sniff window", func(t *testing.T) {
		path := write("tiny.gif", []byte("GIF89a"))
		d, err := Resolve(path)
		if err != nil {
			t.Fatal(err)
		}
		if d == nil || d.Name != "gif" {
			t.Errorf("Resolve() = %v, want gif", d)
		}
	})

	t.Run("Empty file", func(t *testing.T) {
		path := write("empty.bin", nil)
		d, err := Resolve(path)
		if err != nil {
			t.Fatal(err)
		}
		if d != nil {
			t.Errorf("Resolve() = %v, want nil", d)
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		if _, err := Resolve(filepath.Join(dir, "does-not-exist")); err == nil {
			t.Error("Resolve() expected error for missing file")
		}
	})
}

func TestSniffNeverPanics(t *testing.T) {
	// Every prefix length of every signature pattern must be safe.
	seeds := [][]byte{
		nil,
		{0},
		[]byte("RIFF"),
		[]byte("\x00\x00\x00\x18ftyp"),
		make([]byte, SniffWindow),
	}
	for _, seed := range seeds {
		for i := 0; i <= len(seed); i++ {
			_ = Sniff(seed[:i])
		}
	}
}

func TestDescriptorTableConsistency(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range All() {
		if d.Name == "" || d.MIME == "" || len(d.Extensions) == 0 {
			t.Errorf("incomplete descriptor: %+v", d)
		}
		if seen[d.Name] {
			t.Errorf("duplicate descriptor name %q", d.Name)
		}
		seen[d.Name] = true
		for _, ext := range d.Extensions {
			if ext == "" || ext[0] != '.' {
				t.Errorf("descriptor %q has malformed extension %q", d.Name, ext)
			}
		}
	}
}
