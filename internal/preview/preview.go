// Package preview turns arbitrary media files into raster previews. The
// engine resolves a file to a format descriptor, then walks an ordered,
// format-specific chain of extractors until one produces a usable result.
// Each chain step runs to completion before the next is tried; a partial
// decode never propagates. A panic inside one extraction is contained to
// that extraction.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/disintegration/imaging"

	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
	"media-previewer/internal/metrics"
	"media-previewer/internal/render"
)

// Result is the outcome of one extractor step: either a decoded raster or
// an already-encoded image stream (a stored JPEG/PNG preview passed
// through untouched).
type Result struct {
	Image image.Image
	Data  []byte
	MIME  string
}

// Extractor is one step of a format's fallback chain.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, path string) (*Result, error)
}

// Engine orchestrates format resolution and preview extraction.
type Engine struct {
	maxDim         int
	decoderTimeout time.Duration
	useVips        bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDim sets the default thumbnail bound.
func WithMaxDim(dim int) Option {
	return func(e *Engine) { e.maxDim = dim }
}

// WithDecoderTimeout sets the external decoder wall-clock budget.
func WithDecoderTimeout(d time.Duration) Option {
	return func(e *Engine) { e.decoderTimeout = d }
}

// WithVips enables decode-time shrinking through libvips for natively
// decodable images.
func WithVips(enabled bool) Option {
	return func(e *Engine) { e.useVips = enabled }
}

// NewEngine builds an engine with the given options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		maxDim:         render.DefaultMaxDim,
		decoderTimeout: DefaultDecoderTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ResolveStrategy classifies the file and reports its descriptor. A nil
// descriptor with a nil error means no preview is possible and the caller
// should show a generic icon.
func (e *Engine) ResolveStrategy(path string) (*formats.Descriptor, error) {
	desc, err := formats.Resolve(path)
	if err != nil {
		return nil, err
	}
	if desc == nil {
		metrics.ResolveUnrecognized.Inc()
		return nil, nil
	}
	metrics.ResolveTotal.WithLabelValues(desc.Name, string(desc.Strategy)).Inc()
	return desc, nil
}

// ExtractPreview produces the best available preview for the file: stored
// encoded previews pass through as-is, composited or decoded rasters are
// encoded as PNG.
func (e *Engine) ExtractPreview(ctx context.Context, path string) ([]byte, string, error) {
	desc, res, err := e.extract(ctx, path)
	if err != nil {
		return nil, "", err
	}
	if res.Data != nil {
		return res.Data, res.MIME, nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, res.Image); err != nil {
		return nil, "", fmt.Errorf("%s: encode preview: %w", desc.Name, err)
	}
	return buf.Bytes(), "image/png", nil
}

// GenerateThumbnail extracts a preview and finishes it into the standard
// thumbnail encoding. maxDim of zero uses the engine default.
func (e *Engine) GenerateThumbnail(ctx context.Context, path string, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = e.maxDim
	}
	_, res, err := e.extract(ctx, path)
	if err != nil {
		return nil, err
	}
	img := res.Image
	if img == nil {
		img, err = imaging.Decode(bytes.NewReader(res.Data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("%w: stored preview does not decode: %v", formats.ErrCorrupt, err)
		}
	}
	return render.Finish(img, maxDim)
}

// extract runs the file's fallback chain and returns the first usable
// result.
func (e *Engine) extract(ctx context.Context, path string) (*formats.Descriptor, *Result, error) {
	desc, err := e.ResolveStrategy(path)
	if err != nil {
		return nil, nil, err
	}
	if desc == nil {
		return nil, nil, fmt.Errorf("%w: %s", formats.ErrUnrecognized, path)
	}

	chain := e.chain(desc)
	if len(chain) == 0 {
		return desc, nil, fmt.Errorf("%w: no preview pipeline for %s", formats.ErrUnrecognized, desc.Name)
	}

	timer := time.Now()
	var lastErr error
	for i, ex := range chain {
		if i > 0 {
			metrics.ExtractionFallbacks.WithLabelValues(desc.Name, ex.Name()).Inc()
		}
		res, err := e.runExtractor(ctx, ex, path)
		if err != nil {
			logging.Debug("%s: extractor %s failed: %v", path, ex.Name(), err)
			lastErr = err
			continue
		}
		metrics.ExtractionsTotal.WithLabelValues(desc.Name, "ok").Inc()
		metrics.ExtractionDuration.WithLabelValues(desc.Name).Observe(time.Since(timer).Seconds())
		return desc, res, nil
	}
	metrics.ExtractionsTotal.WithLabelValues(desc.Name, "error").Inc()
	return desc, nil, fmt.Errorf("%s: every extractor failed: %w", desc.Name, lastErr)
}

// runExtractor invokes one chain step with panic containment: a malformed
// file must never take down the worker that picked it up.
func (e *Engine) runExtractor(ctx context.Context, ex Extractor, path string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("extractor %s panicked on %s: %v", ex.Name(), path, r)
			res = nil
			err = fmt.Errorf("%w: extractor %s panicked: %v", formats.ErrCorrupt, ex.Name(), r)
		}
	}()
	res, err = ex.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if res == nil || (res.Image == nil && res.Data == nil) {
		return nil, fmt.Errorf("extractor %s returned no result", ex.Name())
	}
	return res, nil
}

// chain builds the ordered extractor list for a descriptor. Later entries
// run only when every earlier one failed.
func (e *Engine) chain(d *formats.Descriptor) []Extractor {
	ffmpeg := &ffmpegExtractor{timeout: e.decoderTimeout, maxDim: e.maxDim}
	native := &nativeExtractor{useVips: e.useVips, maxDim: e.maxDim}

	switch d.Strategy {
	case formats.StrategyNative:
		return []Extractor{native, &scanExtractor{kinds: scanKinds(d.Name)}, ffmpeg}
	case formats.StrategyExternal:
		return []Extractor{ffmpeg}
	case formats.StrategyBrowser:
		return []Extractor{&passthroughExtractor{mime: d.MIME}, ffmpeg}
	case formats.StrategyArchive:
		return []Extractor{&archiveExtractor{}}
	case formats.StrategyExtractor:
		switch d.Name {
		case "sai":
			return []Extractor{&saiExtractor{}}
		case "clip":
			return []Extractor{&clipExtractor{}, &scanExtractor{kinds: scanKinds(d.Name)}, ffmpeg}
		case "mdp":
			return []Extractor{&mdpExtractor{}}
		case "psd":
			return []Extractor{&scanExtractor{kinds: scanKinds(d.Name)}, ffmpeg}
		default:
			// RAW families: embedded preview scan, then the external
			// decoder's raw support.
			return []Extractor{&scanExtractor{kinds: scanKinds(d.Name)}, ffmpeg}
		}
	default:
		return nil
	}
}
