package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"time"

	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
	"media-previewer/internal/metrics"
)

// DefaultDecoderTimeout bounds one external decoder invocation. A hung
// subprocess would otherwise pin a worker forever.
const DefaultDecoderTimeout = 20 * time.Second

// ffmpegExtractor shells out to ffmpeg for everything without a native or
// format-specific path: video frames, HEIF/AVIF, RAW fallback. Always
// time-boxed.
type ffmpegExtractor struct {
	timeout time.Duration
	maxDim  int
}

func (f *ffmpegExtractor) Name() string { return "ffmpeg" }

func (f *ffmpegExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		metrics.ExternalDecoderCalls.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: ffmpeg not in PATH", formats.ErrDecoderUnavailable)
	}
	logging.Debug("Using ffmpeg to decode: %s", path)

	timeout := f.timeout
	if timeout <= 0 {
		timeout = DefaultDecoderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-i", path,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		metrics.ExternalDecoderCalls.WithLabelValues("timeout").Inc()
		return nil, fmt.Errorf("%w: killed after %v", formats.ErrDecoderTimeout, timeout)
	}
	if err != nil {
		metrics.ExternalDecoderCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, truncate(stderr.String(), 512))
	}
	if stdout.Len() == 0 {
		metrics.ExternalDecoderCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}
	logging.Debug("FFmpeg output size: %d bytes", stdout.Len())

	img, _, err := image.Decode(&stdout)
	if err != nil {
		metrics.ExternalDecoderCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	metrics.ExternalDecoderCalls.WithLabelValues("ok").Inc()
	return &Result{Image: img}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
