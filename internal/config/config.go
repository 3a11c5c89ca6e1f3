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

// Config holds settings for the S3 content store, the HealthLake datastore,
// and the Athena query client.
type Config struct {
	// AWS credentials used for the S3 client, the Athena client, and manual
	// request signing against the HealthLake REST API.
	AccessKeyID     string
	SecretAccessKey string
	Region          string

	// Content store.
	Bucket string

	// HealthLake datastore.
	DatastoreID string
	RoleARN     string // data access role for import jobs
	KmsKeyID    string // key for the import job's output location
	Endpoint    string // REST endpoint, e.g. https://healthlake.us-east-2.amazonaws.com

	// Athena.
	AthenaDatabase       string
	AthenaOutputLocation string        // s3:// URI for query results
	PollInterval         time.Duration // status poll interval (default 1s)

	// Bounded retry for the command invoker and REST client. 1 disables
	// retries, the default.
	RetryAttempts int
	RetryBackoff  time.Duration

	LogLevel string // debug, info, warn, error (default "info")

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

// HasCredentials returns true if static AWS credentials are configured.
func (c *Config) HasCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Validate checks that the fields required for the ingestion pipeline are set.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("AWS_REGION must be set")
	}
	if c.Bucket == "" {
		return fmt.Errorf("HIOS_BUCKET must be set")
	}
	if c.DatastoreID == "" {
		return fmt.Errorf("HEALTHLAKE_DATASTORE_ID must be set")
	}
	if c.RoleARN == "" {
		return fmt.Errorf("HEALTHLAKE_ROLE_ARN must be set")
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables. Athena and
// REST endpoint variables are optional: the ingestion pipeline can run
// without them.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		AccessKeyID:          os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey:      os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Region:               os.Getenv("AWS_REGION"),
		Bucket:               os.Getenv("HIOS_BUCKET"),
		DatastoreID:          os.Getenv("HEALTHLAKE_DATASTORE_ID"),
		RoleARN:              os.Getenv("HEALTHLAKE_ROLE_ARN"),
		KmsKeyID:             os.Getenv("KMS_KEY_ID"),
		Endpoint:             os.Getenv("HEALTHLAKE_ENDPOINT"),
		AthenaDatabase:       os.Getenv("ATHENA_DATABASE"),
		AthenaOutputLocation: os.Getenv("ATHENA_OUTPUT_LOCATION"),
		LogLevel:             os.Getenv("LOG_LEVEL"),
	}

	if v := os.Getenv("HIOS_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = d
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid HIOS_POLL_INTERVAL %q: using default", v))
		}
	}
	if v := os.Getenv("HIOS_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetryAttempts = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid HIOS_RETRY_ATTEMPTS %q: using default", v))
		}
	}
	if v := os.Getenv("HIOS_RETRY_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RetryBackoff = d
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid HIOS_RETRY_BACKOFF %q: using default", v))
		}
	}

	// Defaults
	if cfg.Endpoint == "" && cfg.Region != "" {
		cfg.Endpoint = fmt.Sprintf("https://healthlake.%s.amazonaws.com", cfg.Region)
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if !cfg.HasCredentials() {
		cfg.Warnings = append(cfg.Warnings, "AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set: falling back to ambient credentials where possible")
	}

	return cfg, nil
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
