package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-previewer/internal/config"
	"media-previewer/internal/handlers"
	"media-previewer/internal/logging"
	"media-previewer/internal/middleware"
	"media-previewer/internal/preview"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	// Initialize libvips for fast raster decoding; the engine falls back
	// to pure-Go decoders if startup fails.
	if err := preview.InitVips(); err != nil {
		logging.Warn("libvips unavailable, using pure-Go decoders: %v", err)
	}
	defer preview.ShutdownVips()

	// Initialize the preview engine
	engine := preview.NewEngine(
		preview.WithMaxDim(cfg.MaxDim),
		preview.WithDecoderTimeout(cfg.DecoderTimeout),
		preview.WithVips(preview.IsVipsAvailable()),
	)

	// Initialize handlers
	h := handlers.New(engine, cfg)

	// Setup router
	router := setupRouter(h)

	// Apply metrics middleware
	metricsConfig := middleware.DefaultMetricsConfig()
	meteredRouter := middleware.Metrics(metricsConfig)(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggedHandler := middleware.Logger(loggingConfig)(meteredRouter)

	// Apply compression middleware
	compressionConfig := middleware.DefaultCompressionConfig()
	handler := middleware.Compression(compressionConfig)(loggedHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Serve Prometheus metrics on a separate port so the main listener
	// stays private to media traffic
	var metricsSrv *http.Server
	if cfg.MetricsEnabled {
		metricsSrv = startMetricsServer(cfg.MetricsPort)
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv)

	// Start server
	config.LogServerStarted(cfg, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.HealthCheck).Methods("GET")
	r.HandleFunc("/readyz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/version", h.Version).Methods("GET")

	// Preview API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/formats", h.Formats).Methods("GET")
	api.HandleFunc("/thumbnail/{path:.*}", h.Thumbnail).Methods("GET")
	api.HandleFunc("/preview/{path:.*}", h.Preview).Methods("GET")
	api.HandleFunc("/strategy/{path:.*}", h.Strategy).Methods("GET")

	return r
}

func startMetricsServer(port string) *http.Server {
	m := mux.NewRouter()
	m.Handle("/metrics", promhttp.Handler()).Methods("GET")

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     m,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		logging.Info("Metrics server listening on port %s", port)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

func handleShutdown(srv, metricsSrv *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	config.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}

	config.LogShutdownComplete()
}
