// Package config handles application configuration from environment variables
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultEnvFile is the dotenv file read by Load when it exists.
const DefaultEnvFile = ".env"

// Config holds all application configuration.
type Config struct {
	// Local destination
	BackupPath string

	// OVH private database
	ServiceName  string
	DatabaseName string

	// OVH API access, empty values are resolved by go-ovh itself
	OVHEndpoint          string
	OVHApplicationKey    string
	OVHApplicationSecret string
	OVHConsumerKey       string
	SendEmail            bool

	// Polling
	MaxRetries          int
	PollIntervalSeconds int

	LogLevel    slog.Level
	MetricsPort int // 0 disables the HTTP server

	// Respawn protection
	RespawnProtectionHours int
	ForceBackup            bool

	// Mirror storage, "" disables it
	StorageProvider string // "", "s3" or "gcs"

	// S3 configuration
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Bucket           string
	S3Region           string
	S3Endpoint         string // Optional custom endpoint

	// GCS configuration
	GCSBucket                string
	GoogleProjectID          string
	GoogleServiceAccountJSON string

	BackupFilePrefix string
	RetentionDays    int
}

// Load reads configuration from the environment and DefaultEnvFile.
func Load() (*Config, error) {
	return LoadFile(DefaultEnvFile)
}

// LoadFile reads configuration from the environment and the given dotenv file.
// A missing file is not an error; environment variables take precedence over it.
func LoadFile(envFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		BackupPath:   v.GetString("BACKUP_PATH"),
		ServiceName:  v.GetString("BACKUP_SERVICE_NAME"),
		DatabaseName: v.GetString("BACKUP_DATABASE_NAME"),

		OVHEndpoint:          getString(v, "OVH_ENDPOINT", "ovh-eu"),
		OVHApplicationKey:    v.GetString("OVH_APPLICATION_KEY"),
		OVHApplicationSecret: v.GetString("OVH_APPLICATION_SECRET"),
		OVHConsumerKey:       v.GetString("OVH_CONSUMER_KEY"),

		StorageProvider: strings.ToLower(v.GetString("STORAGE_PROVIDER")),

		// S3
		AWSAccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3Region:           v.GetString("S3_REGION"),
		S3Endpoint:         v.GetString("S3_ENDPOINT"),

		// GCS
		GCSBucket:                v.GetString("GCS_BUCKET"),
		GoogleProjectID:          v.GetString("GOOGLE_PROJECT_ID"),
		GoogleServiceAccountJSON: v.GetString("GOOGLE_SERVICE_ACCOUNT_JSON"),

		BackupFilePrefix: v.GetString("BACKUP_FILE_PREFIX"),
	}

	cfg.SendEmail = getBool(v, "OVH_SEND_EMAIL", false)
	cfg.MaxRetries = getInt(v, "MAX_RETRIES", 60)
	cfg.PollIntervalSeconds = getInt(v, "POLL_INTERVAL_SECONDS", 6)
	cfg.LogLevel = getLevel(v, "LOG_LEVEL", slog.LevelInfo)
	cfg.MetricsPort = getInt(v, "METRICS_PORT", 0)
	cfg.RespawnProtectionHours = getInt(v, "RESPAWN_PROTECTION_HOURS", 0)
	cfg.ForceBackup = getBool(v, "FORCE_BACKUP", false)
	cfg.RetentionDays = getInt(v, "RETENTION_DAYS", 0) // 0 means no retention policy

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BackupPath == "" {
		return fmt.Errorf("BACKUP_PATH is required")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("BACKUP_SERVICE_NAME is required")
	}
	if c.DatabaseName == "" {
		return fmt.Errorf("BACKUP_DATABASE_NAME is required")
	}
	if c.OVHEndpoint == "" {
		return fmt.Errorf("OVH_ENDPOINT must not be empty")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be non-negative")
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("METRICS_PORT out of range: %d", c.MetricsPort)
	}
	if c.RespawnProtectionHours < 0 {
		return fmt.Errorf("RESPAWN_PROTECTION_HOURS must be non-negative")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS must be non-negative")
	}

	switch c.StorageProvider {
	case "":
		if c.RetentionDays > 0 {
			return fmt.Errorf("RETENTION_DAYS requires STORAGE_PROVIDER")
		}
	case "s3":
		return c.validateS3()
	case "gcs":
		return c.validateGCS()
	default:
		return fmt.Errorf("invalid STORAGE_PROVIDER: %s (must be 's3' or 'gcs')", c.StorageProvider)
	}

	return nil
}

func (c *Config) validateS3() error {
	if c.AWSAccessKeyID == "" {
		return fmt.Errorf("AWS_ACCESS_KEY_ID is required for S3 storage")
	}
	if c.AWSSecretAccessKey == "" {
		return fmt.Errorf("AWS_SECRET_ACCESS_KEY is required for S3 storage")
	}
	if c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required for S3 storage")
	}
	if c.S3Region == "" && c.S3Endpoint == "" {
		return fmt.Errorf("S3_REGION is required for S3 storage (unless S3_ENDPOINT is set)")
	}
	return nil
}

func (c *Config) validateGCS() error {
	if c.GCSBucket == "" {
		return fmt.Errorf("GCS_BUCKET is required for GCS storage")
	}
	if c.GoogleProjectID == "" {
		return fmt.Errorf("GOOGLE_PROJECT_ID is required for GCS storage")
	}
	if c.GoogleServiceAccountJSON == "" {
		return fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is required for GCS storage")
	}
	return nil
}

// MirrorEnabled reports whether the downloaded dump is copied to object storage.
func (c *Config) MirrorEnabled() bool {
	return c.StorageProvider != ""
}

// PollInterval returns the wait between two dump listings.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// GetRespawnProtectionDuration returns the respawn protection as a Duration.
func (c *Config) GetRespawnProtectionDuration() time.Duration {
	return time.Duration(c.RespawnProtectionHours) * time.Hour
}

func getString(v *viper.Viper, key, defaultValue string) string {
	if value := v.GetString(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt falls back to defaultValue when the key is unset or not a number.
func getInt(v *viper.Viper, key string, defaultValue int) int {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBool(v *viper.Viper, key string, defaultValue bool) bool {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getLevel accepts slog level names such as "debug" or "WARN", plus the
// WARNING, CRITICAL and numeric (10-50) levels common in other logging setups.
// Anything else keeps defaultValue and is reported on the default logger.
func getLevel(v *viper.Viper, key string, defaultValue slog.Level) slog.Level {
	value := strings.ToUpper(strings.TrimSpace(v.GetString(key)))
	switch value {
	case "":
		return defaultValue
	case "10":
		return slog.LevelDebug
	case "20":
		return slog.LevelInfo
	case "WARNING", "30":
		return slog.LevelWarn
	case "CRITICAL", "FATAL", "40", "50":
		return slog.LevelError
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err == nil {
		return level
	}

	slog.Warn("Unrecognised log level, using default", "key", key, "value", value, "default", defaultValue)
	return defaultValue
}
