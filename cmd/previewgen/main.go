// Command previewgen pre-generates thumbnails for a media directory tree.
// It writes the same cache files the server produces, so a warmed cache
// carries over directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	json "github.com/goccy/go-json"

	"media-previewer/internal/batch"
	"media-previewer/internal/logging"
	"media-previewer/internal/preview"
	"media-previewer/internal/render"
)

func main() {
	mediaDir := flag.String("media", "/media", "media directory to walk")
	outDir := flag.String("out", "", "thumbnail output directory (default <media>/.thumbnails)")
	workers := flag.Int("workers", 0, "number of parallel workers (0 = auto)")
	size := flag.Int("size", render.DefaultMaxDim, "thumbnail bound in pixels")
	force := flag.Bool("force", false, "regenerate thumbnails that already exist")
	timeout := flag.Duration("decoder-timeout", preview.DefaultDecoderTimeout, "external decoder timeout")
	useVips := flag.Bool("vips", true, "use libvips for raster decoding when available")
	flag.Parse()

	if *outDir == "" {
		*outDir = filepath.Join(*mediaDir, ".thumbnails")
	}
	if *size < 16 || *size > 4096 {
		logging.Fatal("size must be between 16 and 4096, got %d", *size)
	}

	if *useVips {
		if err := preview.InitVips(); err != nil {
			logging.Warn("libvips unavailable, using pure-Go decoders: %v", err)
		}
		defer preview.ShutdownVips()
	}

	engine := preview.NewEngine(
		preview.WithMaxDim(*size),
		preview.WithDecoderTimeout(*timeout),
		preview.WithVips(preview.IsVipsAvailable()),
	)

	cfg := batch.DefaultConfig()
	if *workers > 0 {
		cfg.NumWorkers = *workers
	}
	cfg.MaxDim = *size
	cfg.Force = *force

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	stats, err := batch.NewRunner(engine, *mediaDir, *outDir, cfg).Run(ctx)
	if err != nil {
		logging.Fatal("Batch run failed: %v", err)
	}
	logging.Info("Batch run complete in %s: %d generated, %d skipped, %d errors",
		time.Since(start).Round(time.Millisecond), stats.Generated, stats.Skipped, stats.Errors)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write summary: %v\n", err)
		os.Exit(1)
	}
}
