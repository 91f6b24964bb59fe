package handlers

import (
	"time"

	"media-previewer/internal/config"
	"media-previewer/internal/preview"
)

type Handlers struct {
	engine       *preview.Engine
	mediaDir     string
	thumbnailDir string
	maxDim       int
	started      time.Time
}

func New(engine *preview.Engine, cfg *config.Config) *Handlers {
	return &Handlers{
		engine:       engine,
		mediaDir:     cfg.MediaDir,
		thumbnailDir: cfg.ThumbnailDir,
		maxDim:       cfg.MaxDim,
		started:      time.Now(),
	}
}
