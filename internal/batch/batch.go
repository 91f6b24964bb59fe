// Package batch generates thumbnails for a whole directory tree with a
// bounded worker pool. One malformed file never aborts a run: per-file
// failures are counted and logged, the walk continues.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"

	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
	"media-previewer/internal/metrics"
	"media-previewer/internal/preview"
	"media-previewer/internal/workers"
)

// Config configures a batch run.
type Config struct {
	// NumWorkers is the number of parallel workers (0 = auto based on CPU)
	NumWorkers int
	// ChannelBuffer is the size of the work channel buffer
	ChannelBuffer int
	// SkipHidden skips files and directories starting with "."
	SkipHidden bool
	// MaxDim is the thumbnail bound passed to the engine (0 = engine default)
	MaxDim int
	// Force regenerates thumbnails whose cache file already exists
	Force bool
}

// DefaultConfig returns sensible defaults based on available resources.
func DefaultConfig() Config {
	return Config{
		NumWorkers:    workers.ForCPU(8),
		ChannelBuffer: 1000,
		SkipHidden:    true,
	}
}

// Stats summarizes a completed run.
type Stats struct {
	Generated int64         `json:"generated"`
	Skipped   int64         `json:"skipped"`
	Errors    int64         `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

type fileJob struct {
	path    string
	relPath string
}

// Runner walks a media tree and writes thumbnails into an output
// directory.
type Runner struct {
	config   Config
	engine   *preview.Engine
	mediaDir string
	outDir   string

	jobs chan fileJob
	wg   sync.WaitGroup

	generated atomic.Int64
	skipped   atomic.Int64
	errors    atomic.Int64
}

// NewRunner creates a batch runner over mediaDir writing into outDir.
func NewRunner(engine *preview.Engine, mediaDir, outDir string, config Config) *Runner {
	if config.NumWorkers <= 0 {
		config.NumWorkers = workers.ForCPU(8)
	}
	if config.ChannelBuffer <= 0 {
		config.ChannelBuffer = 1000
	}
	return &Runner{
		config:   config,
		engine:   engine,
		mediaDir: mediaDir,
		outDir:   outDir,
		jobs:     make(chan fileJob, config.ChannelBuffer),
	}
}

// CacheKey derives the stable thumbnail filename for a media file: a hash
// of the relative path, size and mtime, so edits invalidate naturally.
func CacheKey(relPath string, size int64, mtime time.Time) string {
	h := xxh3.HashString(fmt.Sprintf("%s|%d|%d", relPath, size, mtime.UnixNano()))
	return fmt.Sprintf("%016x.jpg", h)
}

// Run walks the tree and generates every thumbnail, returning aggregate
// statistics. Cancelling the context stops the walk and drains workers.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	logging.Info("Starting batch thumbnail run with %d workers", r.config.NumWorkers)
	metrics.BatchRunsTotal.Inc()
	metrics.BatchRunning.Set(1)
	defer metrics.BatchRunning.Set(0)
	startTime := time.Now()

	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}

	for i := 0; i < r.config.NumWorkers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}

	walkErr := r.walkAndEnqueue(ctx)
	close(r.jobs)
	r.wg.Wait()

	stats := &Stats{
		Generated: r.generated.Load(),
		Skipped:   r.skipped.Load(),
		Errors:    r.errors.Load(),
		Duration:  time.Since(startTime),
	}
	metrics.BatchLastRunDuration.Set(stats.Duration.Seconds())
	logging.Info("Batch run complete: %d generated, %d skipped, %d errors in %v",
		stats.Generated, stats.Skipped, stats.Errors, stats.Duration)
	return stats, walkErr
}

func (r *Runner) walkAndEnqueue(ctx context.Context) error {
	return filepath.WalkDir(r.mediaDir, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return fs.SkipAll
		default:
		}

		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}
		if r.config.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(r.mediaDir, path)
		if err != nil {
			return nil
		}

		select {
		case r.jobs <- fileJob{path: path, relPath: relPath}:
		case <-ctx.Done():
			return fs.SkipAll
		}
		return nil
	})
}

func (r *Runner) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	logging.Debug("Batch worker %d started", id)

	for job := range r.jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		r.processFile(ctx, job)
	}
	logging.Debug("Batch worker %d finished", id)
}

func (r *Runner) processFile(ctx context.Context, job fileJob) {
	desc, err := r.engine.ResolveStrategy(job.path)
	if err != nil || desc == nil {
		r.skipped.Add(1)
		metrics.BatchFilesProcessed.WithLabelValues("skipped").Inc()
		return
	}
	switch desc.Strategy {
	case formats.StrategyIcon, formats.StrategyNone:
		r.skipped.Add(1)
		metrics.BatchFilesProcessed.WithLabelValues("skipped").Inc()
		return
	}

	info, err := os.Stat(job.path)
	if err != nil {
		r.errors.Add(1)
		metrics.BatchFilesProcessed.WithLabelValues("error").Inc()
		return
	}
	outPath := filepath.Join(r.outDir, CacheKey(job.relPath, info.Size(), info.ModTime()))
	if !r.config.Force {
		if _, err := os.Stat(outPath); err == nil {
			r.skipped.Add(1)
			metrics.BatchFilesProcessed.WithLabelValues("skipped").Inc()
			return
		}
	}

	thumb, err := r.engine.GenerateThumbnail(ctx, job.path, r.config.MaxDim)
	if err != nil {
		r.errors.Add(1)
		metrics.BatchFilesProcessed.WithLabelValues("error").Inc()
		logging.Debug("Thumbnail failed for %s: %v", job.path, err)
		return
	}
	if err := os.WriteFile(outPath, thumb, 0o644); err != nil {
		r.errors.Add(1)
		metrics.BatchFilesProcessed.WithLabelValues("error").Inc()
		logging.Warn("Failed to write thumbnail %s: %v", outPath, err)
		return
	}
	r.generated.Add(1)
	metrics.BatchFilesProcessed.WithLabelValues("ok").Inc()
}
