package render

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"testing"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 100, 255})
		}
	}
	return img
}

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		name         string
		w, h, maxDim int
		wantW, wantH int
	}{
		{"Landscape", 400, 200, 100, 100, 50},
		{"Portrait", 200, 400, 100, 50, 100},
		{"Square", 300, 300, 128, 128, 128},
		{"Upscale", 50, 25, 200, 200, 100},
		{"Extreme aspect never hits zero", 10000, 3, 100, 100, 1},
		{"Zero input", 0, 100, 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitDimensions(tt.w, tt.h, tt.maxDim)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("FitDimensions() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFinishDimensionsAndAspect(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		maxDim int
	}{
		{"Landscape downscale", 800, 600, 256},
		{"Portrait downscale", 300, 900, 256},
		{"Square", 512, 512, 128},
		{"Upscale small input", 40, 30, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Finish(testImage(tt.w, tt.h), tt.maxDim)
			if err != nil {
				t.Fatal(err)
			}

			cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("output is not a decodable JPEG: %v", err)
			}

			longer := cfg.Width
			if cfg.Height > longer {
				longer = cfg.Height
			}
			if d := longer - tt.maxDim; d < -1 || d > 1 {
				t.Errorf("longer side = %d, want %d (±1)", longer, tt.maxDim)
			}

			srcRatio := float64(tt.w) / float64(tt.h)
			outRatio := float64(cfg.Width) / float64(cfg.Height)
			if math.Abs(srcRatio-outRatio)/srcRatio > 0.01 {
				t.Errorf("aspect ratio drifted: src %.4f out %.4f", srcRatio, outRatio)
			}
		})
	}
}

func TestFinishDefaults(t *testing.T) {
	data, err := Finish(testImage(100, 100), 0)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != DefaultMaxDim || cfg.Height != DefaultMaxDim {
		t.Errorf("default output = %dx%d, want %dx%d", cfg.Width, cfg.Height, DefaultMaxDim, DefaultMaxDim)
	}
}

func TestFinishFlattensTransparency(t *testing.T) {
	// Fully transparent input must encode as white, not black.
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	data, err := Finish(img, 64)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := decoded.At(32, 32).RGBA()
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Errorf("transparent region rendered as %d,%d,%d; want near white", r>>8, g>>8, b>>8)
	}
}

func TestFinishErrors(t *testing.T) {
	if _, err := Finish(nil, 100); err == nil {
		t.Error("Finish(nil) expected error")
	}
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	if _, err := Finish(empty, 100); err == nil {
		t.Error("Finish(empty) expected error")
	}
}
