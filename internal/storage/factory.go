package storage

import (
	"context"
	"fmt"

	"github.com/imedwei/ovh-privatedb-backup/internal/config"
)

// NewStorage creates the mirror storage selected by STORAGE_PROVIDER. It
// returns nil, nil when mirroring is disabled.
func NewStorage(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageProvider {
	case "":
		return nil, nil

	case "s3":
		s, err := NewS3Storage(ctx, s3Config(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 storage: %w", err)
		}
		return s, nil

	case "gcs":
		if err := ValidateServiceAccountJSON(cfg.GoogleServiceAccountJSON); err != nil {
			return nil, fmt.Errorf("invalid GCS service account: %w", err)
		}
		g, err := NewGCSStorage(ctx, gcsConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to create gcs storage: %w", err)
		}
		return g, nil

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.StorageProvider)
	}
}

// s3Config maps the application configuration onto S3Config. OVH Object
// Storage and other custom endpoints need path-style addressing.
func s3Config(cfg *config.Config) S3Config {
	return S3Config{
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		Endpoint:        cfg.S3Endpoint,
		Prefix:          cfg.BackupFilePrefix,
		UsePathStyle:    cfg.S3Endpoint != "",
	}
}

func gcsConfig(cfg *config.Config) GCSConfig {
	return GCSConfig{
		Bucket:             cfg.GCSBucket,
		ProjectID:          cfg.GoogleProjectID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		Prefix:             cfg.BackupFilePrefix,
	}
}
