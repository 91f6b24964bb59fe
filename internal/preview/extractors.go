package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"media-previewer/internal/archive"
	"media-previewer/internal/clip"
	"media-previewer/internal/embedded"
	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
	"media-previewer/internal/mdp"
	"media-previewer/internal/metrics"
	"media-previewer/internal/sai"
)

// saiExtractor opens the encrypted paged container and prefers its stored
// thumbnail; documents saved without one are fully composited.
type saiExtractor struct{}

func (s *saiExtractor) Name() string { return "sai" }

func (s *saiExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	fs, err := sai.Open(path)
	if err != nil {
		return nil, err
	}
	defer fs.Close()

	img, err := fs.Thumbnail()
	if err == nil {
		return &Result{Image: img}, nil
	}
	if !errors.Is(err, formats.ErrEntryNotFound) {
		return nil, err
	}
	logging.Debug("%s: no stored thumbnail, compositing layers", path)

	timer := time.Now()
	img, err = fs.Composite()
	if err != nil {
		metrics.CompositeTotal.WithLabelValues("sai", "error").Inc()
		return nil, err
	}
	metrics.CompositeTotal.WithLabelValues("sai", "ok").Inc()
	metrics.CompositeDuration.WithLabelValues("sai").Observe(time.Since(timer).Seconds())
	return &Result{Image: img}, nil
}

// clipExtractor prefers the thumbnail chunk's stored JPEG, then the
// full-resolution preview inside the embedded database.
type clipExtractor struct{}

func (c *clipExtractor) Name() string { return "clip" }

func (c *clipExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	cont, err := clip.Open(path)
	if err != nil {
		return nil, err
	}
	defer cont.Close()

	jpeg, err := cont.Thumbnail()
	if err == nil {
		return &Result{Data: jpeg, MIME: "image/jpeg"}, nil
	}
	if !errors.Is(err, formats.ErrEntryNotFound) && !errors.Is(err, formats.ErrUnsupportedEncoding) {
		return nil, err
	}
	logging.Debug("%s: no usable thumbnail chunk (%v), trying the embedded database", path, err)

	data, err := cont.DatabasePreview()
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, MIME: "image/png"}, nil
}

// mdpExtractor composites the tiled project file; it stores no separate
// preview.
type mdpExtractor struct{}

func (m *mdpExtractor) Name() string { return "mdp" }

func (m *mdpExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	p, err := mdp.Open(path)
	if err != nil {
		return nil, err
	}
	timer := time.Now()
	img, err := p.Composite()
	if err != nil {
		metrics.CompositeTotal.WithLabelValues("mdp", "error").Inc()
		return nil, err
	}
	metrics.CompositeTotal.WithLabelValues("mdp", "ok").Inc()
	metrics.CompositeDuration.WithLabelValues("mdp").Observe(time.Since(timer).Seconds())
	return &Result{Image: img}, nil
}

// archiveExtractor pulls the stored preview member from zip-packaged
// documents.
type archiveExtractor struct{}

func (a *archiveExtractor) Name() string { return "archive" }

func (a *archiveExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	data, err := archive.Preview(path)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, MIME: "image/png"}, nil
}

// scanExtractor searches the raw file bytes for an embedded preview
// image, trying each configured kind in order.
type scanExtractor struct {
	kinds []embedded.Kind
}

func (s *scanExtractor) Name() string { return "scan" }

func (s *scanExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	data, err := readCapped(path)
	if err != nil {
		return nil, err
	}
	for _, kind := range s.kinds {
		match := embedded.Scan(data, kind)
		if match == nil {
			metrics.ScannerMatches.WithLabelValues(string(kind), "none").Inc()
			continue
		}
		metrics.ScannerMatches.WithLabelValues(string(kind), "match").Inc()
		metrics.ScannerMatchBytes.Observe(float64(len(match)))
		logging.Debug("%s: embedded %s preview, %d bytes", path, kind, len(match))
		return &Result{Data: match, MIME: scanMIME(kind)}, nil
	}
	return nil, fmt.Errorf("%w: no embedded preview found", formats.ErrEntryNotFound)
}

func scanMIME(kind embedded.Kind) string {
	switch kind {
	case embedded.KindPNG:
		return "image/png"
	case embedded.KindTIFF:
		return "image/tiff"
	default:
		// XMP payloads are JPEG in practice.
		return "image/jpeg"
	}
}

// readCapped reads at most the scanner byte cap from the file.
func readCapped(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size > embedded.MaxScanBytes {
		size = embedded.MaxScanBytes
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// scanKinds orders the embedded-image kinds worth trying for a format.
func scanKinds(format string) []embedded.Kind {
	switch format {
	case "fuji-raw", "sigma-raw":
		return []embedded.Kind{embedded.KindJPEG}
	case "dng":
		return []embedded.Kind{embedded.KindJPEG, embedded.KindTIFF, embedded.KindXMP}
	case "canon-raw", "nikon-raw", "sony-raw", "olympus-raw", "panasonic-raw":
		return []embedded.Kind{embedded.KindJPEG, embedded.KindTIFF}
	case "psd":
		return []embedded.Kind{embedded.KindJPEG, embedded.KindTIFF}
	case "clip":
		return []embedded.Kind{embedded.KindPNG, embedded.KindJPEG}
	default:
		return []embedded.Kind{embedded.KindJPEG}
	}
}
