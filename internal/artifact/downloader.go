package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/imedwei/ovh-privatedb-backup/internal/utils"
)

// Result describes a finished download.
type Result struct {
	Path     string
	Filename string
	Bytes    int64
	Duration time.Duration
}

// Downloader writes dump artifacts into a local directory.
type Downloader struct {
	probe   Probe
	logger  *slog.Logger
	buffers *utils.BufferPool
}

// NewDownloader creates a downloader that fetches through probe.
func NewDownloader(probe Probe, logger *slog.Logger) *Downloader {
	return &Downloader{
		probe:   probe,
		logger:  logger.With("component", "downloader"),
		buffers: utils.DefaultBufferPool,
	}
}

// Download streams url into dir, naming the file after the URL's last path
// segment. An existing file with the same name is overwritten. A failed
// transfer leaves whatever was written in place.
func (d *Downloader) Download(ctx context.Context, url, dir string) (*Result, error) {
	filename, err := utils.ArtifactFilename(url)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	start := time.Now()

	body, err := d.probe.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := body.Close(); err != nil {
			d.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	dest := filepath.Join(dir, filename)
	file, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	d.logger.Info("Downloading dump", "filename", filename, "path", dest)

	pw := utils.NewProgressWriter(file, func(written int64, elapsed time.Duration) {
		d.logger.Debug("Download progress",
			"filename", filename,
			"written", utils.FormatBytes(written),
			"rate", utils.FormatRate(float64(written)/elapsed.Seconds()),
		)
	})

	n, copyErr := d.buffers.Copy(pw, body)
	closeErr := file.Close()
	if copyErr != nil {
		return nil, fmt.Errorf("failed to download %s: %w", filename, copyErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to finalize %s: %w", dest, closeErr)
	}

	result := &Result{
		Path:     dest,
		Filename: filename,
		Bytes:    n,
		Duration: time.Since(start),
	}

	d.logger.Info("Dump downloaded",
		"path", dest,
		"size", utils.FormatBytes(n),
		"duration", result.Duration,
	)

	return result, nil
}
