// Package config provides centralized configuration management for the
// media integrity service.
//
// All values are loaded from environment variables with sensible
// defaults, following the MEDIAGUARD_ prefix convention. Exclusion lists,
// ignored-error patterns, schedules, and scan roots are database-backed
// and editable at runtime through the admin endpoints (§4.7); this
// package only covers the process-level configuration surface named in
// spec.md §6.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all process-level configuration values.
type Config struct {
	// Port is the HTTP server listening port.
	// Environment: MEDIAGUARD_PORT. Default: 8085.
	Port int

	// DataPath is the root directory for the catalog database and logs.
	// Environment: MEDIAGUARD_DATA_PATH. Default: "./var".
	DataPath string

	// DatabaseURL overrides the default SQLite file location. The value
	// is used as the database file path; catalog.Open appends its own
	// connection parameters to it.
	// Environment: MEDIAGUARD_DATABASE_URL.
	DatabaseURL string

	// ScanRoots is the comma-separated list of directory trees to walk.
	// Environment: MEDIAGUARD_SCAN_ROOTS.
	ScanRoots []string

	// MaxFilesPerScan caps how many new files a single scan operation
	// will add in its discovery phase. Zero means unlimited.
	// Environment: MEDIAGUARD_MAX_FILES_PER_SCAN.
	MaxFilesPerScan int

	// WorkerCount bounds concurrent probe invocations (§5 resource caps).
	// Environment: MEDIAGUARD_WORKER_COUNT. Default: 4.
	WorkerCount int

	// Timezone names the timezone used for display timestamps.
	// Environment: MEDIAGUARD_TIMEZONE. Default: "UTC".
	Timezone string

	// TokenSecret is carried for parity with the ambient stack but is
	// unused while authentication remains a non-goal (spec.md §1).
	// Environment: MEDIAGUARD_SECRET_KEY.
	TokenSecret string

	// UseLegacyTemplates toggles between the (out-of-scope) UI template
	// sets. The core never renders HTML; the flag is loaded here but no
	// endpoint reports it (system-info returns catalog statistics only).
	// Environment: MEDIAGUARD_USE_LEGACY_UI.
	UseLegacyTemplates bool

	// ResetBatchSize is passed to the Operation Engine's Config. No reset
	// or recover path batches by it: recover-stuck-scan resets all
	// scanning rows in one statement.
	// Environment: MEDIAGUARD_RESET_BATCH_SIZE. Default: 500.
	ResetBatchSize int

	// LogLevel sets the minimum log level.
	// Environment: MEDIAGUARD_LOG_LEVEL. Default: "info".
	LogLevel string

	// LogFile, when set, routes logs to a rotating file instead of stdout.
	// Environment: MEDIAGUARD_LOG_FILE.
	LogFile string

	// HTTPReadTimeout / HTTPWriteTimeout / HTTPIdleTimeout / ShutdownTimeout
	// bound the HTTP server's lifecycle, matching the teacher's timeout
	// knobs.
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ShutdownTimeout  time.Duration

	// RateLimitRequests is the per-minute budget for write-producing
	// endpoints (spec.md §4.7). RateLimitWindow is loaded but not used:
	// the limiter's window is always one minute.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	AppName    string
	AppVersion string
}

// Load creates a Config populated from environment variables.
func Load() *Config {
	return &Config{
		Port:               getEnvInt("MEDIAGUARD_PORT", 8085),
		DataPath:           getEnv("MEDIAGUARD_DATA_PATH", "./var"),
		DatabaseURL:        getEnv("MEDIAGUARD_DATABASE_URL", ""),
		ScanRoots:          getEnvStringSlice("MEDIAGUARD_SCAN_ROOTS", nil),
		MaxFilesPerScan:    getEnvInt("MEDIAGUARD_MAX_FILES_PER_SCAN", 0),
		WorkerCount:        getEnvInt("MEDIAGUARD_WORKER_COUNT", 4),
		Timezone:           getEnv("MEDIAGUARD_TIMEZONE", "UTC"),
		TokenSecret:        getEnv("MEDIAGUARD_SECRET_KEY", "mediaguard-dev-secret"),
		UseLegacyTemplates: getEnvBool("MEDIAGUARD_USE_LEGACY_UI", false),
		ResetBatchSize:     getEnvInt("MEDIAGUARD_RESET_BATCH_SIZE", 500),
		LogLevel:           getEnv("MEDIAGUARD_LOG_LEVEL", "info"),
		LogFile:            getEnv("MEDIAGUARD_LOG_FILE", ""),
		HTTPReadTimeout:    getEnvDuration("MEDIAGUARD_HTTP_READ_TIMEOUT", 15),
		HTTPWriteTimeout:   getEnvDuration("MEDIAGUARD_HTTP_WRITE_TIMEOUT", 15),
		HTTPIdleTimeout:    getEnvDuration("MEDIAGUARD_HTTP_IDLE_TIMEOUT", 60),
		ShutdownTimeout:    getEnvDuration("MEDIAGUARD_SHUTDOWN_TIMEOUT", 30),
		RateLimitRequests:  getEnvInt("MEDIAGUARD_RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:    getEnvDuration("MEDIAGUARD_RATE_LIMIT_WINDOW", 60),
		AppName:            getEnv("MEDIAGUARD_APP_NAME", "mediaguard"),
		AppVersion:         getEnv("MEDIAGUARD_APP_VERSION", "1.0.0"),
	}
}

// DatabasePath returns the full path to the catalog SQLite file unless
// DatabaseURL overrides it.
func (c *Config) DatabasePath() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DataPath + "/data/catalog.db"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return time.Duration(intValue) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
