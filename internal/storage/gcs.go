package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/imedwei/ovh-privatedb-backup/internal/utils"
)

// listedAttrs are the only object attributes the mirror reads back.
var listedAttrs = []string{"Name", "Size", "Updated", "Metadata"}

// GCSStorage mirrors dumps into a Google Cloud Storage bucket.
type GCSStorage struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix keyPrefix
}

// GCSConfig holds GCS-specific configuration.
type GCSConfig struct {
	Bucket             string
	ProjectID          string
	ServiceAccountJSON string
	Prefix             string // Optional prefix for all keys
}

// NewGCSStorage creates a new GCS storage provider.
func NewGCSStorage(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	var opts []option.ClientOption
	if cfg.ServiceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	}
	return newGCSStorage(ctx, cfg, opts...)
}

// newGCSStorage builds the provider with extra client options, e.g. a custom
// endpoint.
func newGCSStorage(ctx context.Context, cfg GCSConfig, opts ...option.ClientOption) (*GCSStorage, error) {
	opts = append([]option.ClientOption{option.WithUserAgent(userAgent)}, opts...)

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		prefix: keyPrefix(cfg.Prefix),
	}, nil
}

func (g *GCSStorage) object(key string) *storage.ObjectHandle {
	return g.bucket.Object(g.prefix.full(key))
}

// Upload implements Storage.Upload. A failed copy cancels the resumable
// upload so no partial object is committed.
func (g *GCSStorage) Upload(ctx context.Context, key string, reader io.Reader, metadata map[string]string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.object(key).NewWriter(ctx)
	w.Metadata = metadata
	w.ContentType, w.ContentDisposition = contentHeaders(key)
	w.ChunkSize = uploadPartSize

	if _, err := utils.DefaultBufferPool.Copy(w, reader); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("failed to upload to GCS: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS upload: %w", err)
	}

	return nil
}

// Delete implements Storage.Delete. Deleting a missing object succeeds.
func (g *GCSStorage) Delete(ctx context.Context, key string) error {
	err := g.object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete from GCS: %w", err)
	}

	return nil
}

// List implements Storage.List.
func (g *GCSStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	query := &storage.Query{Prefix: g.prefix.full(prefix)}
	if err := query.SetAttrSelection(listedAttrs); err != nil {
		return nil, fmt.Errorf("failed to build GCS query: %w", err)
	}

	var objects []ObjectInfo
	it := g.bucket.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list GCS objects: %w", err)
		}

		objects = append(objects, ObjectInfo{
			Key:          g.prefix.strip(attrs.Name),
			Size:         attrs.Size,
			LastModified: attrs.Updated,
			Metadata:     attrs.Metadata,
		})
	}

	return objects, nil
}

// GetLastBackupTime implements Storage.GetLastBackupTime. GCS listings carry
// metadata, so every object's dump creation time is considered.
func (g *GCSStorage) GetLastBackupTime(ctx context.Context) (time.Time, error) {
	objects, err := g.List(ctx, "")
	if err != nil {
		return time.Time{}, err
	}
	return latestBackupTime(objects), nil
}

// Close closes the GCS client connection.
func (g *GCSStorage) Close() error {
	return g.client.Close()
}

// ValidateServiceAccountJSON checks that jsonStr is a service account key
// usable for uploads.
func ValidateServiceAccountJSON(jsonStr string) error {
	var sa struct {
		Type        string `json:"type"`
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}

	if err := json.Unmarshal([]byte(jsonStr), &sa); err != nil {
		return fmt.Errorf("invalid service account JSON: %w", err)
	}

	switch {
	case sa.Type != "service_account":
		return fmt.Errorf("invalid service account type: %q", sa.Type)
	case sa.ClientEmail == "":
		return errors.New("service account has no client_email")
	case sa.PrivateKey == "":
		return errors.New("service account has no private_key")
	}

	return nil
}
