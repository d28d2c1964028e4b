package utils

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultProgressStep is how many bytes pass between two progress callbacks.
const DefaultProgressStep = 10 * 1024 * 1024

// ProgressWriter wraps an io.Writer and tracks bytes written.
type ProgressWriter struct {
	writer       io.Writer
	bytesWritten atomic.Int64
	startTime    time.Time
	updateFunc   func(bytesWritten int64, elapsed time.Duration)
	updateEvery  int64
}

// NewProgressWriter creates a new progress tracking writer that calls updateFunc
// every DefaultProgressStep bytes.
func NewProgressWriter(writer io.Writer, updateFunc func(bytesWritten int64, elapsed time.Duration)) *ProgressWriter {
	return NewProgressWriterEvery(writer, DefaultProgressStep, updateFunc)
}

// NewProgressWriterEvery is NewProgressWriter with a custom step.
func NewProgressWriterEvery(writer io.Writer, step int64, updateFunc func(bytesWritten int64, elapsed time.Duration)) *ProgressWriter {
	if step <= 0 {
		step = DefaultProgressStep
	}
	return &ProgressWriter{
		writer:      writer,
		startTime:   time.Now(),
		updateFunc:  updateFunc,
		updateEvery: step,
	}
}

// Write implements io.Writer interface with progress tracking.
func (pw *ProgressWriter) Write(p []byte) (n int, err error) {
	n, err = pw.writer.Write(p)
	if n > 0 {
		newTotal := pw.bytesWritten.Add(int64(n))

		// Fire once each time a step boundary is crossed
		if pw.updateFunc != nil && newTotal/pw.updateEvery != (newTotal-int64(n))/pw.updateEvery {
			pw.updateFunc(newTotal, time.Since(pw.startTime))
		}
	}
	return n, err
}

// BytesWritten returns the total number of bytes written.
func (pw *ProgressWriter) BytesWritten() int64 {
	return pw.bytesWritten.Load()
}

// FormatBytes formats bytes in human-readable IEC units, e.g. "10 MiB".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatRate formats transfer rate in human-readable format.
func FormatRate(bytesPerSecond float64) string {
	return FormatBytes(int64(bytesPerSecond)) + "/s"
}
