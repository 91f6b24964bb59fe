// Package render is the final stage of every preview pipeline: one
// aspect-preserving resample to the target bound, then a fixed-quality
// encode into the engine's standard thumbnail container.
//
// Callers depend on these constants for cache-key stability, so the output
// format, quality and sizing rule must not vary per input.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const (
	// Quality is the fixed JPEG quality of every thumbnail.
	Quality = 85
	// MIME is the media type of every thumbnail this package emits.
	MIME = "image/jpeg"
	// DefaultMaxDim is the target bound when the caller passes zero.
	DefaultMaxDim = 256
)

// FitDimensions computes output dimensions so the longer side equals
// maxDim and the aspect ratio is preserved. Small inputs are scaled up:
// normalizing every output to the same bound keeps cache keys stable.
func FitDimensions(width, height, maxDim int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	if width >= height {
		h := height * maxDim / width
		if h < 1 {
			h = 1
		}
		return maxDim, h
	}
	w := width * maxDim / height
	if w < 1 {
		w = 1
	}
	return w, maxDim
}

// Finish resamples the raster so its longer side equals maxDim and encodes
// it as a JPEG thumbnail. Bilinear filtering is deliberate: for
// thumbnail-scale output the quality difference against higher-order
// filters is invisible and the resample dominates extraction cost for
// large canvases.
func Finish(src image.Image, maxDim int) ([]byte, error) {
	if src == nil {
		return nil, fmt.Errorf("render: nil source image")
	}
	if maxDim <= 0 {
		maxDim = DefaultMaxDim
	}

	b := src.Bounds()
	w, h := FitDimensions(b.Dx(), b.Dy(), maxDim)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("render: source has empty bounds %v", b)
	}

	thumb := imaging.Resize(src, w, h, imaging.Linear)

	// JPEG has no alpha channel; composite canvases may be partially
	// transparent, so flatten onto white before encoding.
	flat := flatten(thumb)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("render: encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// flatten composites img over an opaque white background when it carries
// any transparency; fully opaque images pass through untouched.
func flatten(img *image.NRGBA) image.Image {
	opaque := true
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			opaque = false
			break
		}
	}
	if opaque {
		return img
	}

	bg := image.NewNRGBA(img.Bounds())
	draw.Draw(bg, bg.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(bg, bg.Bounds(), img, img.Bounds().Min, draw.Over)
	return bg
}
