package batch

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-previewer/internal/preview"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+3] = 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRun(t *testing.T) {
	mediaDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "thumbs")
	writePNG(t, filepath.Join(mediaDir, "a.png"))
	writePNG(t, filepath.Join(mediaDir, "sub", "b.png"))
	writePNG(t, filepath.Join(mediaDir, ".hidden", "c.png"))
	if err := os.WriteFile(filepath.Join(mediaDir, "junk.bin"), []byte{0, 1, 2}, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mediaDir, "broken.png"), []byte("\x89PNG\r\n\x1a\nnot really"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.NumWorkers = 2
	cfg.MaxDim = 16
	r := NewRunner(preview.NewEngine(), mediaDir, outDir, cfg)

	stats, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Generated != 2 {
		t.Errorf("generated = %d, want 2", stats.Generated)
	}
	if stats.Errors != 1 {
		t.Errorf("errors = %d, want 1 (the truncated png)", stats.Errors)
	}
	if stats.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 (the unrecognized file)", stats.Skipped)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("output files = %d, want 2", len(entries))
	}
}

func TestRunSkipsCachedThumbnails(t *testing.T) {
	mediaDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "thumbs")
	writePNG(t, filepath.Join(mediaDir, "a.png"))

	cfg := DefaultConfig()
	cfg.NumWorkers = 1
	cfg.MaxDim = 16
	r := NewRunner(preview.NewEngine(), mediaDir, outDir, cfg)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	r2 := NewRunner(preview.NewEngine(), mediaDir, outDir, cfg)
	stats, err := r2.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Generated != 0 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want the cached file skipped", stats)
	}
}

func TestCacheKey(t *testing.T) {
	now := time.Now()
	a := CacheKey("x/y.png", 100, now)
	if b := CacheKey("x/y.png", 100, now); a != b {
		t.Error("cache key is not deterministic")
	}
	if b := CacheKey("x/y.png", 101, now); a == b {
		t.Error("cache key ignores size")
	}
	if b := CacheKey("x/z.png", 100, now); a == b {
		t.Error("cache key ignores path")
	}
	if len(a) != 20 || a[16:] != ".jpg" {
		t.Errorf("cache key format = %q", a)
	}
}
