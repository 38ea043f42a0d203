/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DatabaseBackend selects which gorm dialector the library database uses.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
// Audio/DMX/MIDI operational defaults live in the Settings document
// (internal/settings) since they are part of the persisted show
// configuration, not process bootstrap.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	DBBackend DatabaseBackend
	DBDSN     string

	JWTSigningKey string
	MetricsBind   string

	SettingsPath string

	// LibraryRoot is the filesystem root for track audio files when no S3
	// bucket is configured.
	LibraryRoot string

	// FFmpegBin is the ffmpeg binary used to decode track audio for deck
	// playback and for waveform/beat grid analysis.
	FFmpegBin string

	// S3 object storage configuration for library track files.
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string
	S3PublicBaseURL   string
	S3UsePathStyle    bool

	// Tracing configuration.
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Event bus: when NATSURL is set, cmd/console mirrors the in-process
	// event bus onto NATS; when empty, only the in-process bus is used.
	NATSURL string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"CONSOLE_ENV", "LC_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"CONSOLE_HTTP_BIND", "LC_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"CONSOLE_HTTP_PORT", "LC_HTTP_PORT"}, 8080),

		DBBackend: DatabaseBackend(getEnvAny([]string{"CONSOLE_DB_BACKEND", "LC_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:     getEnvAny([]string{"CONSOLE_DB_DSN", "LC_DB_DSN"}, "console.db"),

		JWTSigningKey: getEnvAny([]string{"CONSOLE_JWT_SIGNING_KEY", "LC_JWT_SIGNING_KEY"}, ""),
		MetricsBind:   getEnvAny([]string{"CONSOLE_METRICS_BIND", "LC_METRICS_BIND"}, "127.0.0.1:9000"),

		SettingsPath: getEnvAny([]string{"CONSOLE_SETTINGS_PATH", "LC_SETTINGS_PATH"}, "./settings.json"),
		LibraryRoot:  getEnvAny([]string{"CONSOLE_LIBRARY_ROOT", "LC_LIBRARY_ROOT"}, "./library"),
		FFmpegBin:    getEnvAny([]string{"CONSOLE_FFMPEG_BIN", "LC_FFMPEG_BIN"}, "ffmpeg"),

		S3AccessKeyID:     getEnvAny([]string{"CONSOLE_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"CONSOLE_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"CONSOLE_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"CONSOLE_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"CONSOLE_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3PublicBaseURL:   getEnvAny([]string{"CONSOLE_S3_PUBLIC_BASE_URL", "S3_PUBLIC_BASE_URL"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"CONSOLE_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		TracingEnabled:    getEnvBoolAny([]string{"CONSOLE_TRACING_ENABLED", "LC_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"CONSOLE_OTLP_ENDPOINT", "LC_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"CONSOLE_TRACING_SAMPLE_RATE", "LC_TRACING_SAMPLE_RATE"}, 1.0),

		NATSURL: getEnvAny([]string{"CONSOLE_NATS_URL", "LC_NATS_URL"}, ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("CONSOLE_DB_DSN or LC_DB_DSN must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") && cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("CONSOLE_JWT_SIGNING_KEY or LC_JWT_SIGNING_KEY must be set in production")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":     "use CONSOLE_ENV (or LC_ENV)",
		"JWT_SIGNING_KEY": "use CONSOLE_JWT_SIGNING_KEY (or LC_JWT_SIGNING_KEY)",
		"TRACING_ENABLED": "use CONSOLE_TRACING_ENABLED (or LC_TRACING_ENABLED)",
		"OTLP_ENDPOINT":   "use CONSOLE_OTLP_ENDPOINT (or LC_OTLP_ENDPOINT)",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
