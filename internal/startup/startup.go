package startup

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"photo-rater/internal/logging"
	"photo-rater/internal/workers"
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
	BaseDir         string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool

	PartitionSize int
	BatchSize     int
	ServeTimeout  time.Duration

	MaxFileSize    int64
	MaxLogFileSize int64

	IngestInterval    time.Duration
	ThumbnailInterval time.Duration
	ArchiveInterval   time.Duration
	ExportInterval    time.Duration

	ThumbnailMaxDimension int
	ThumbnailWorkers      int

	JWTSecret     string
	TokenTTL      time.Duration
	RaterUsername string
	RaterPassword string
	RaterUsers    string

	Layout Layout
}

// Defaults
const (
	DefaultPartitionSize  = 100
	DefaultBatchSize      = 10
	DefaultMaxFileSize    = 2 * 1024 * 1024
	DefaultMaxLogFileSize = 20 * 1024 * 1024
	DefaultThumbnailSize  = 1024
)

// LoadConfig loads and validates configuration from environment variables
// and prepares the directory layout under BASE_DIR.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	config, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := config.Layout.Ensure(); err != nil {
		return nil, err
	}
	logging.Info("  Base directory (absolute): %s", config.Layout.Base)

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(config.Layout.Database); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Directory layout ready")

	return config, nil
}

// configFromEnv reads and validates the environment without touching disk.
func configFromEnv() (*Config, error) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	baseDir, err := filepath.Abs(getEnv("BASE_DIR", "."))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory path: %w", err)
	}
	databaseDir := getEnv("DATABASE_DIR", filepath.Join(baseDir, "database"))
	if databaseDir, err = filepath.Abs(databaseDir); err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}

	config := &Config{
		BaseDir:               baseDir,
		Port:                  getEnv("PORT", "5410"),
		MetricsPort:           getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:        getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks:       getEnvBool("LOG_HEALTH_CHECKS", false),
		PartitionSize:         getEnvInt("PARTITION_SIZE", DefaultPartitionSize),
		BatchSize:             getEnvInt("IMAGE_BATCH_SIZE", DefaultBatchSize),
		ServeTimeout:          getEnvDuration("SERVE_TIMEOUT", 30*time.Minute),
		MaxFileSize:           getEnvInt64("MAX_FILE_SIZE_BYTES", DefaultMaxFileSize),
		MaxLogFileSize:        getEnvInt64("MAX_LOG_FILE_SIZE_BYTES", DefaultMaxLogFileSize),
		IngestInterval:        getEnvDuration("INGEST_INTERVAL", time.Hour),
		ThumbnailInterval:     getEnvDuration("THUMBNAIL_INTERVAL", time.Hour),
		ArchiveInterval:       getEnvDuration("ARCHIVE_INTERVAL", 30*time.Minute),
		ExportInterval:        getEnvDuration("EXPORT_INTERVAL", 0),
		ThumbnailMaxDimension: getEnvInt("THUMBNAIL_MAX_DIMENSION", DefaultThumbnailSize),
		ThumbnailWorkers:      getEnvInt("THUMBNAIL_WORKERS", workers.ForMixed(8)),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		TokenTTL:              getEnvDuration("TOKEN_TTL", 12*time.Hour),
		RaterUsername:         getEnv("RATER_USERNAME", ""),
		RaterPassword:         os.Getenv("RATER_PASSWORD"),
		RaterUsers:            os.Getenv("RATER_USERS"),
		Layout:                NewLayout(baseDir, databaseDir),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	if config.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		config.JWTSecret = secret
		logging.Warn("  JWT_SECRET not set, using a random secret (tokens will not survive a restart)")
	}

	logging.Info("  BASE_DIR:                %s", config.BaseDir)
	logging.Info("  DATABASE_DIR:            %s", databaseDir)
	logging.Info("  PORT:                    %s", config.Port)
	logging.Info("  METRICS_PORT:            %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:         %v", config.MetricsEnabled)
	logging.Info("  PARTITION_SIZE:          %d", config.PartitionSize)
	logging.Info("  IMAGE_BATCH_SIZE:        %d", config.BatchSize)
	logging.Info("  SERVE_TIMEOUT:           %v", config.ServeTimeout)
	logging.Info("  MAX_FILE_SIZE_BYTES:     %d", config.MaxFileSize)
	logging.Info("  MAX_LOG_FILE_SIZE_BYTES: %d", config.MaxLogFileSize)
	logging.Info("  INGEST_INTERVAL:         %v", config.IngestInterval)
	logging.Info("  THUMBNAIL_INTERVAL:      %v", config.ThumbnailInterval)
	logging.Info("  ARCHIVE_INTERVAL:        %v", config.ArchiveInterval)
	logging.Info("  EXPORT_INTERVAL:         %s", intervalString(config.ExportInterval))
	logging.Info("  THUMBNAIL_MAX_DIMENSION: %d", config.ThumbnailMaxDimension)
	logging.Info("  THUMBNAIL_WORKERS:       %d", config.ThumbnailWorkers)
	logging.Info("  TOKEN_TTL:               %v", config.TokenTTL)
	logging.Info("  LOG_HEALTH_CHECKS:       %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:               %s", logging.GetLevel())

	return config, nil
}

func (c *Config) validate() error {
	if c.PartitionSize <= 0 {
		return fmt.Errorf("PARTITION_SIZE must be positive, got %d", c.PartitionSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("IMAGE_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_BYTES must be positive, got %d", c.MaxFileSize)
	}
	if c.MaxLogFileSize <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE_BYTES must be positive, got %d", c.MaxLogFileSize)
	}
	if c.ThumbnailMaxDimension <= 0 {
		return fmt.Errorf("THUMBNAIL_MAX_DIMENSION must be positive, got %d", c.ThumbnailMaxDimension)
	}
	if c.ThumbnailWorkers <= 0 {
		c.ThumbnailWorkers = 1
	}
	for name, d := range map[string]time.Duration{
		"INGEST_INTERVAL":    c.IngestInterval,
		"THUMBNAIL_INTERVAL": c.ThumbnailInterval,
		"ARCHIVE_INTERVAL":   c.ArchiveInterval,
		"SERVE_TIMEOUT":      c.ServeTimeout,
		"TOKEN_TTL":          c.TokenTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %v", name, d)
		}
	}
	if c.ExportInterval < 0 {
		return fmt.Errorf("EXPORT_INTERVAL must not be negative, got %v", c.ExportInterval)
	}
	return nil
}

func intervalString(d time.Duration) string {
	if d == 0 {
		return "disabled"
	}
	return d.String()
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func printBanner() {
	banner := `
------------------------------------------------------------
          __          __
   ____  / /_  ____  / /_____        _________ _/ /____  _____
  / __ \/ __ \/ __ \/ __/ __ \______/ ___/ __ '/ __/ _ \/ ___/
 / /_/ / / / / /_/ / /_/ /_/ /_____/ /  / /_/ / /_/  __/ /
/ .___/_/ /_/\____/\__/\____/     /_/   \__,_/\__/\___/_/
/_/
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

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
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

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvDuration accepts Go durations ("90s", "1h") and bare integers as
// seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
