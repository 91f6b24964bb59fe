package preview

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"

	// Register decoders beyond the stdlib set so image.DecodeConfig and
	// imaging.Open see them.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"media-previewer/internal/canvas"
	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
)

// nativeExtractor decodes directly supported raster formats. When libvips
// is available it is preferred: decode-time shrinking keeps huge photos
// from ballooning memory.
type nativeExtractor struct {
	useVips bool
	maxDim  int
}

func (n *nativeExtractor) Name() string { return "native" }

func (n *nativeExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	if err := checkDecodeBounds(path); err != nil {
		return nil, err
	}

	if n.useVips && IsVipsAvailable() {
		if img, err := loadWithVips(path, n.maxDim); err == nil {
			return &Result{Image: img}, nil
		} else {
			logging.Debug("vips decode failed for %s: %v, falling back to pure-Go decode", path, err)
		}
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", formats.ErrCorrupt, err)
	}
	return &Result{Image: img}, nil
}

// checkDecodeBounds reads only the image header and rejects rasters whose
// decoded size would exceed the canvas pixel cap.
func checkDecodeBounds(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %v", formats.ErrCorrupt, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > canvas.MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds the decode bound", formats.ErrCorrupt, cfg.Width, cfg.Height)
	}
	return nil
}

// passthroughExtractor returns the file bytes untouched for formats the
// GUI shell renders itself (vector documents).
type passthroughExtractor struct {
	mime string
}

func (p *passthroughExtractor) Name() string { return "passthrough" }

func (p *passthroughExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", formats.ErrCorrupt)
	}
	return &Result{Data: data, MIME: p.mime}, nil
}
