package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// managedKeys are cleared before each case so the host environment cannot leak in.
var managedKeys = []string{
	"BACKUP_PATH",
	"BACKUP_SERVICE_NAME",
	"BACKUP_DATABASE_NAME",
	"OVH_ENDPOINT",
	"OVH_SEND_EMAIL",
	"MAX_RETRIES",
	"POLL_INTERVAL_SECONDS",
	"LOG_LEVEL",
	"METRICS_PORT",
	"RESPAWN_PROTECTION_HOURS",
	"FORCE_BACKUP",
	"STORAGE_PROVIDER",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"S3_BUCKET",
	"S3_REGION",
	"S3_ENDPOINT",
	"GCS_BUCKET",
	"GOOGLE_PROJECT_ID",
	"GOOGLE_SERVICE_ACCOUNT_JSON",
	"RETENTION_DAYS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedKeys {
		// t.Setenv restores the original value after the test
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadFile(t *testing.T) {
	required := map[string]string{
		"BACKUP_PATH":          "/var/backups/",
		"BACKUP_SERVICE_NAME":  "sql-1234",
		"BACKUP_DATABASE_NAME": "shop",
	}

	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name:    "minimal config",
			env:     required,
			wantErr: false,
		},
		{
			name: "missing BACKUP_PATH",
			env: map[string]string{
				"BACKUP_SERVICE_NAME":  "sql-1234",
				"BACKUP_DATABASE_NAME": "shop",
			},
			wantErr: true,
		},
		{
			name: "missing BACKUP_SERVICE_NAME",
			env: map[string]string{
				"BACKUP_PATH":          "/var/backups/",
				"BACKUP_DATABASE_NAME": "shop",
			},
			wantErr: true,
		},
		{
			name: "missing BACKUP_DATABASE_NAME",
			env: map[string]string{
				"BACKUP_PATH":         "/var/backups/",
				"BACKUP_SERVICE_NAME": "sql-1234",
			},
			wantErr: true,
		},
		{
			name: "valid S3 mirror",
			env: merge(required, map[string]string{
				"STORAGE_PROVIDER":      "s3",
				"AWS_ACCESS_KEY_ID":     "test-key",
				"AWS_SECRET_ACCESS_KEY": "test-secret",
				"S3_BUCKET":             "test-bucket",
				"S3_REGION":             "eu-west-3",
			}),
			wantErr: false,
		},
		{
			name: "valid GCS mirror",
			env: merge(required, map[string]string{
				"STORAGE_PROVIDER":            "gcs",
				"GCS_BUCKET":                  "test-bucket",
				"GOOGLE_PROJECT_ID":           "test-project",
				"GOOGLE_SERVICE_ACCOUNT_JSON": `{"type": "service_account"}`,
			}),
			wantErr: false,
		},
		{
			name: "invalid STORAGE_PROVIDER",
			env: merge(required, map[string]string{
				"STORAGE_PROVIDER": "ftp",
			}),
			wantErr: true,
		},
		{
			name: "negative MAX_RETRIES",
			env: merge(required, map[string]string{
				"MAX_RETRIES": "-1",
			}),
			wantErr: true,
		},
		{
			name: "retention without mirror",
			env: merge(required, map[string]string{
				"RETENTION_DAYS": "7",
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadFile("")
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadFile() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && cfg == nil {
				t.Errorf("LoadFile() returned nil config without error")
			}
		})
	}
}

func TestLoadFile_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKUP_PATH", "/var/backups/")
	t.Setenv("BACKUP_SERVICE_NAME", "sql-1234")
	t.Setenv("BACKUP_DATABASE_NAME", "shop")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.OVHEndpoint != "ovh-eu" {
		t.Errorf("OVHEndpoint = %q, want ovh-eu", cfg.OVHEndpoint)
	}
	if cfg.MaxRetries != 60 {
		t.Errorf("MaxRetries = %d, want 60", cfg.MaxRetries)
	}
	if cfg.PollInterval() != 6*time.Second {
		t.Errorf("PollInterval() = %v, want 6s", cfg.PollInterval())
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
	if cfg.MirrorEnabled() {
		t.Errorf("MirrorEnabled() = true, want false")
	}
	if cfg.SendEmail {
		t.Errorf("SendEmail = true, want false")
	}
}

func TestLoadFile_EnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "BACKUP_PATH=/srv/dumps/\n" +
		"BACKUP_SERVICE_NAME=sql-from-file\n" +
		"BACKUP_DATABASE_NAME=blog\n" +
		"LOG_LEVEL=debug\n" +
		"POLL_INTERVAL_SECONDS=2\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	// environment wins over the file
	t.Setenv("BACKUP_SERVICE_NAME", "sql-from-env")

	cfg, err := LoadFile(envFile)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.BackupPath != "/srv/dumps/" {
		t.Errorf("BackupPath = %q, want /srv/dumps/", cfg.BackupPath)
	}
	if cfg.ServiceName != "sql-from-env" {
		t.Errorf("ServiceName = %q, want sql-from-env", cfg.ServiceName)
	}
	if cfg.DatabaseName != "blog" {
		t.Errorf("DatabaseName = %q, want blog", cfg.DatabaseName)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
	if cfg.PollIntervalSeconds != 2 {
		t.Errorf("PollIntervalSeconds = %d, want 2", cfg.PollIntervalSeconds)
	}
}

func TestLoadFile_MissingEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKUP_PATH", "/var/backups/")
	t.Setenv("BACKUP_SERVICE_NAME", "sql-1234")
	t.Setenv("BACKUP_DATABASE_NAME", "shop")

	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("LoadFile() with missing file error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := Config{
		BackupPath:          "/var/backups/",
		ServiceName:         "sql-1234",
		DatabaseName:        "shop",
		OVHEndpoint:         "ovh-eu",
		MaxRetries:          60,
		PollIntervalSeconds: 6,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero retries allowed",
			mutate:  func(c *Config) { c.MaxRetries = 0 },
			wantErr: false,
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.PollIntervalSeconds = 0 },
			wantErr: true,
		},
		{
			name:    "negative respawn protection",
			mutate:  func(c *Config) { c.RespawnProtectionHours = -1 },
			wantErr: true,
		},
		{
			name:    "metrics port out of range",
			mutate:  func(c *Config) { c.MetricsPort = 70000 },
			wantErr: true,
		},
		{
			name: "missing S3 credentials",
			mutate: func(c *Config) {
				c.StorageProvider = "s3"
				c.S3Bucket = "bucket"
				c.S3Region = "eu-west-3"
			},
			wantErr: true,
		},
		{
			name: "S3 with custom endpoint and no region",
			mutate: func(c *Config) {
				c.StorageProvider = "s3"
				c.AWSAccessKeyID = "key"
				c.AWSSecretAccessKey = "secret"
				c.S3Bucket = "bucket"
				c.S3Endpoint = "https://s3.gra.io.cloud.ovh.net"
			},
			wantErr: false,
		},
		{
			name: "GCS missing project",
			mutate: func(c *Config) {
				c.StorageProvider = "gcs"
				c.GCSBucket = "bucket"
				c.GoogleServiceAccountJSON = "{}"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetRespawnProtectionDuration(t *testing.T) {
	cfg := &Config{
		RespawnProtectionHours: 8,
	}

	want := 8 * time.Hour
	if got := cfg.GetRespawnProtectionDuration(); got != want {
		t.Errorf("GetRespawnProtectionDuration() = %v, want %v", got, want)
	}
}

func merge(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func TestLoadFile_LogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{value: "", want: slog.LevelInfo},
		{value: "debug", want: slog.LevelDebug},
		{value: "WARN", want: slog.LevelWarn},
		{value: "WARNING", want: slog.LevelWarn},
		{value: "warning", want: slog.LevelWarn},
		{value: "error", want: slog.LevelError},
		{value: "CRITICAL", want: slog.LevelError},
		{value: "10", want: slog.LevelDebug},
		{value: "30", want: slog.LevelWarn},
		{value: "50", want: slog.LevelError},
		{value: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("LOG_LEVEL="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("BACKUP_PATH", "/var/backups/")
			t.Setenv("BACKUP_SERVICE_NAME", "sql-1234")
			t.Setenv("BACKUP_DATABASE_NAME", "shop")
			t.Setenv("LOG_LEVEL", tt.value)

			cfg, err := LoadFile("")
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if cfg.LogLevel != tt.want {
				t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, tt.want)
			}
		})
	}
}
