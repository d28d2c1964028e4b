package backup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/imedwei/ovh-privatedb-backup/internal/artifact"
	"github.com/imedwei/ovh-privatedb-backup/internal/metrics"
	"github.com/imedwei/ovh-privatedb-backup/internal/privatedb"
	"github.com/imedwei/ovh-privatedb-backup/internal/storage"
	"github.com/imedwei/ovh-privatedb-backup/internal/utils"
)

// mirror uploads the downloaded dump to the configured storage.
func (o *Orchestrator) mirror(ctx context.Context, dump *privatedb.Dump, result *artifact.Result) error {
	file, err := os.Open(result.Path)
	if err != nil {
		return fmt.Errorf("failed to open downloaded dump: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			o.logger.Warn("Failed to close downloaded dump", "error", err)
		}
	}()

	key := utils.MirrorKey(o.config.ServiceName, o.config.DatabaseName, result.Filename)
	metadata := map[string]string{
		storage.MetaDumpID:       strconv.FormatInt(dump.ID, 10),
		storage.MetaCreatedAt:    dump.CreationDate.UTC().Format(time.RFC3339),
		storage.MetaServiceName:  o.config.ServiceName,
		storage.MetaDatabaseName: o.config.DatabaseName,
		storage.MetaBackupTool:   toolName,
	}

	o.logger.Info("Starting upload to storage", "provider", o.config.StorageProvider, "key", key)
	uploadStart := time.Now()

	if err := o.storage.Upload(ctx, key, file, metadata); err != nil {
		metrics.RecordStorageOperation("upload", o.config.StorageProvider, false)
		return fmt.Errorf("failed to mirror dump: %w", err)
	}

	uploadDuration := time.Since(uploadStart)
	metrics.PhaseDuration.WithLabelValues("mirror").Observe(uploadDuration.Seconds())
	metrics.RecordStorageOperation("upload", o.config.StorageProvider, true)

	o.logger.Info("Dump mirrored",
		"key", key,
		"size", utils.FormatBytes(result.Bytes),
		"upload_duration", uploadDuration,
	)
	return nil
}

// cleanupOldBackups removes mirrored dumps of this database older than the
// retention period. Failed deletions are logged and skipped.
func (o *Orchestrator) cleanupOldBackups(ctx context.Context) error {
	o.logger.Info("Starting cleanup of old mirrored dumps", "retention_days", o.config.RetentionDays)

	cutoff := time.Now().AddDate(0, 0, -o.config.RetentionDays)
	prefix := utils.MirrorKey(o.config.ServiceName, o.config.DatabaseName, "") + "/"

	objects, err := o.storage.List(ctx, prefix)
	if err != nil {
		metrics.RecordStorageOperation("list", o.config.StorageProvider, false)
		return fmt.Errorf("failed to list mirrored dumps: %w", err)
	}
	metrics.RecordStorageOperation("list", o.config.StorageProvider, true)

	var deleted int
	for _, obj := range objects {
		backupTime := obj.BackupTime()
		if !backupTime.Before(cutoff) {
			continue
		}

		o.logger.Info("Deleting old mirrored dump",
			"key", obj.Key,
			"backup_time", backupTime,
			"age_days", int(time.Since(backupTime).Hours()/24),
		)

		if err := o.storage.Delete(ctx, obj.Key); err != nil {
			o.logger.Error("Failed to delete old mirrored dump", "key", obj.Key, "error", err)
			metrics.RecordStorageOperation("delete", o.config.StorageProvider, false)
			continue
		}
		deleted++
		metrics.RecordStorageOperation("delete", o.config.StorageProvider, true)
		metrics.MirrorDeleted.Inc()
	}

	o.logger.Info("Cleanup completed", "deleted_count", deleted)
	return nil
}
