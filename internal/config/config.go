package config

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"media-previewer/internal/logging"
	"media-previewer/internal/render"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	MediaDir       string
	CacheDir       string
	Port           string
	MetricsPort    string
	MetricsEnabled bool
	MaxDim         int
	DecoderTimeout time.Duration

	// Derived paths
	ThumbnailDir string

	// External decoder availability, probed at startup
	FFmpegAvailable bool
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	mediaDir := getEnv("MEDIA_DIR", "/media")
	cacheDir := getEnv("CACHE_DIR", "/cache")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	maxDim := getEnvInt("THUMBNAIL_MAX_DIM", render.DefaultMaxDim)
	decoderTimeoutStr := getEnv("DECODER_TIMEOUT", "20s")

	logging.Info("  MEDIA_DIR:          %s", mediaDir)
	logging.Info("  CACHE_DIR:          %s", cacheDir)
	logging.Info("  PORT:               %s", port)
	logging.Info("  METRICS_PORT:       %s", metricsPort)
	logging.Info("  METRICS_ENABLED:    %v", metricsEnabled)
	logging.Info("  THUMBNAIL_MAX_DIM:  %d", maxDim)
	logging.Info("  DECODER_TIMEOUT:    %s", decoderTimeoutStr)
	logging.Info("  LOG_LEVEL:          %s", logging.GetLevel())

	if maxDim < 16 || maxDim > 4096 {
		return nil, fmt.Errorf("THUMBNAIL_MAX_DIM %d outside the supported 16-4096 range", maxDim)
	}

	decoderTimeout, err := time.ParseDuration(decoderTimeoutStr)
	if err != nil {
		logging.Warn("  Invalid DECODER_TIMEOUT, using default: 20s")
		decoderTimeout = 20 * time.Second
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	mediaDir, err = filepath.Abs(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	logging.Info("  Media directory (absolute): %s", mediaDir)

	cacheDir, err = filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	logging.Info("  Cache directory (absolute): %s", cacheDir)

	if err := ensureDirectory(mediaDir, "media"); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	config := &Config{
		MediaDir:       mediaDir,
		CacheDir:       cacheDir,
		Port:           port,
		MetricsPort:    metricsPort,
		MetricsEnabled: metricsEnabled,
		MaxDim:         maxDim,
		DecoderTimeout: decoderTimeout,
		ThumbnailDir:   filepath.Join(cacheDir, "thumbnails"),
	}

	if err := ensureDirectory(config.ThumbnailDir, "thumbnails"); err != nil {
		return nil, fmt.Errorf("thumbnail directory error: %w", err)
	}
	logging.Debug("  Testing thumbnail directory write access...")
	if err := testWriteAccess(config.ThumbnailDir); err != nil {
		return nil, fmt.Errorf("thumbnail directory is not writable: %w", err)
	}
	logging.Info("  [OK] Thumbnail directory is writable")

	config.FFmpegAvailable = checkFFmpeg() == nil
	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Thumbnails:       ENABLED (required)")
	logging.Info("    External decoder: %s", enabledString(config.FFmpegAvailable))
	logging.Info("    Metrics:          %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(cfg *Config, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", startupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", cfg.Port)
	if cfg.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", cfg.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___       ___                _
   /  |/  /__  ____/ (_)___ _/ _ \_______ _  __(_)__ _    _____ ____
  / /|_/ / _ \/ __  / / __ '/ ___/ __/ -_) |/ / / -_) |/|/ / -_) __/
 / /  / /  __/ /_/ / / /_/ / /  / /  \__/|___/_/\__/|__,__/\__/_/
/_/  /_/\___/\__,_/_/\__,_/_/  /_/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Write access was confirmed regardless
	}
	return nil
}

func checkFFmpeg() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "ffmpeg", "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(lines[0]))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
