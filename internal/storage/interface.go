// Package storage mirrors downloaded dumps to object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	userAgent = "ovh-privatedb-backup"

	// uploadPartSize is the multipart part size for S3 and the resumable chunk
	// size for GCS.
	uploadPartSize = 16 * 1024 * 1024
)

// Metadata keys attached to every mirrored dump.
const (
	MetaDumpID       = "dump-id"
	MetaCreatedAt    = "dump-created-at"
	MetaServiceName  = "service-name"
	MetaDatabaseName = "database-name"
	MetaBackupTool   = "backup-tool"
)

// Storage defines the interface for mirror storage operations.
type Storage interface {
	// Upload stores a dump under the given key.
	Upload(ctx context.Context, key string, reader io.Reader, metadata map[string]string) error

	// Delete removes the object with the given key.
	Delete(ctx context.Context, key string) error

	// List returns all objects matching the given prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// GetLastBackupTime retrieves the creation time of the most recent mirrored dump.
	GetLastBackupTime(ctx context.Context) (time.Time, error)

	// Close releases the underlying client.
	Close() error
}

// ObjectInfo contains information about a mirrored dump.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	Metadata     map[string]string
}

// BackupTime returns the dump creation time recorded in the metadata, falling
// back to the object's modification time.
func (o ObjectInfo) BackupTime() time.Time {
	if ts, ok := o.Metadata[MetaCreatedAt]; ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t
		}
	}
	return o.LastModified
}

// newest returns the most recently modified object, false when objects is empty.
func newest(objects []ObjectInfo) (ObjectInfo, bool) {
	if len(objects) == 0 {
		return ObjectInfo{}, false
	}
	sorted := append([]ObjectInfo(nil), objects...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LastModified.After(sorted[j].LastModified)
	})
	return sorted[0], true
}

// latestBackupTime returns the most recent dump creation time among objects,
// zero when objects is empty.
func latestBackupTime(objects []ObjectInfo) time.Time {
	var latest time.Time
	for _, obj := range objects {
		if t := obj.BackupTime(); t.After(latest) {
			latest = t
		}
	}
	return latest
}

// contentHeaders returns the Content-Type and Content-Disposition stored with
// a mirrored dump.
func contentHeaders(key string) (contentType, disposition string) {
	name := path.Base(key)
	switch {
	case strings.HasSuffix(name, ".gz"):
		contentType = "application/gzip"
	case strings.HasSuffix(name, ".sql"):
		contentType = "application/sql"
	default:
		contentType = "application/octet-stream"
	}
	return contentType, fmt.Sprintf("attachment; filename=%q", name)
}

// keyPrefix scopes every key of a bucket under an optional prefix.
type keyPrefix string

// full returns the full object key with prefix. A trailing slash on key is
// kept so listing prefixes stay scoped to one directory.
func (p keyPrefix) full(key string) string {
	if p == "" {
		return key
	}
	joined := path.Join(string(p), key)
	if strings.HasSuffix(key, "/") {
		joined += "/"
	}
	return joined
}

// strip removes the prefix from a key.
func (p keyPrefix) strip(key string) string {
	if p == "" {
		return key
	}
	trimmed := path.Clean(string(p)) + "/"
	if len(key) >= len(trimmed) && key[:len(trimmed)] == trimmed {
		return key[len(trimmed):]
	}
	return key
}
