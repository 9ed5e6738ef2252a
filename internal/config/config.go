// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the usage report service.
type Config struct {
	AWSRegion string // AWS region for Athena, Glue, and Identity Store clients

	Database       string // Athena/Glue database holding the usage table (required)
	OutputLocation string // S3 URI Athena writes query artifacts to (required)
	WorkGroup      string // Athena workgroup (optional)
	TableOverride  string // skip Glue discovery and query this table (optional)

	IdentityStoreID string // Identity Store id; empty disables name resolution

	QueryTTL     time.Duration // query result cache window (default 5m)
	ResolveTTL   time.Duration // table name and identity cache window (default 1h)
	PollInterval time.Duration // delay between query status polls (default 1s)
	MaxQueryWait time.Duration // bound on a single query execution (default 15m)

	ListenAddr         string   // HTTP listen address (default ":8080")
	LogLevel           string   // debug, info, warn, error (default "info")
	RateLimitRPS       float64  // sustained requests per second (default 100)
	RateLimitBurst     int      // burst capacity (default 200)
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	RefreshSchedule string // cron expression for scheduled cache refresh (optional)
	SectionsPath    string // YAML file with custom report sections (optional)

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IdentityEnabled returns true when an identity store is configured.
// Without one, user ids are shown as-is.
func (c *Config) IdentityEnabled() bool {
	return c.IdentityStoreID != ""
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		AWSRegion:       os.Getenv("AWS_REGION"),
		Database:        os.Getenv("ATHENA_DATABASE"),
		OutputLocation:  os.Getenv("ATHENA_OUTPUT_BUCKET"),
		WorkGroup:       os.Getenv("ATHENA_WORKGROUP"),
		TableOverride:   os.Getenv("GLUE_TABLE_NAME"),
		IdentityStoreID: os.Getenv("IDENTITY_STORE_ID"),
		ListenAddr:      os.Getenv("LISTEN_ADDR"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		RefreshSchedule: os.Getenv("REFRESH_SCHEDULE"),
		SectionsPath:    os.Getenv("REPORT_SECTIONS_FILE"),
	}

	cfg.QueryTTL = parseDurationEnv(cfg, "QUERY_CACHE_TTL", 5*time.Minute)
	cfg.ResolveTTL = parseDurationEnv(cfg, "RESOLVE_CACHE_TTL", time.Hour)
	cfg.PollInterval = parseDurationEnv(cfg, "QUERY_POLL_INTERVAL", time.Second)
	cfg.MaxQueryWait = parseDurationEnv(cfg, "MAX_QUERY_WAIT", 15*time.Minute)

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("RATE_LIMIT_RPS %q is not a number — using default", v))
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("RATE_LIMIT_BURST %q is not a number — using default", v))
		}
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	// Required settings
	if cfg.Database == "" {
		return nil, fmt.Errorf("ATHENA_DATABASE must be set")
	}
	if cfg.OutputLocation == "" {
		return nil, fmt.Errorf("ATHENA_OUTPUT_BUCKET must be set")
	}

	if cfg.IdentityStoreID == "" {
		cfg.Warnings = append(cfg.Warnings, "IDENTITY_STORE_ID not set — user ids will not be resolved to names")
	}
	if cfg.TableOverride == "" {
		cfg.Warnings = append(cfg.Warnings, "GLUE_TABLE_NAME not set — the table will be discovered from the Glue database")
	}

	return cfg, nil
}

func parseDurationEnv(cfg *Config, key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s %q is not a valid duration — using %s", key, v, defaultVal))
		return defaultVal
	}
	return d
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
