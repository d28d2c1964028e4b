package utils

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestProgressWriter(t *testing.T) {
	var sink bytes.Buffer
	var updates []int64

	pw := NewProgressWriterEvery(&sink, 10, func(bytesWritten int64, elapsed time.Duration) {
		updates = append(updates, bytesWritten)
	})

	// 4 + 4 + 4 crosses 10 once, 12 + 9 crosses 20 once
	for _, chunk := range []string{"aaaa", "bbbb", "cccc", "ddddddddd"} {
		if _, err := pw.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	if pw.BytesWritten() != 21 {
		t.Errorf("BytesWritten() = %d, want 21", pw.BytesWritten())
	}
	if sink.String() != "aaaabbbbccccddddddddd" {
		t.Errorf("sink = %q", sink.String())
	}
	if len(updates) != 2 || updates[0] != 12 || updates[1] != 21 {
		t.Errorf("updates = %v, want [12 21]", updates)
	}
}

func TestProgressWriter_LargeSingleWrite(t *testing.T) {
	var calls int
	pw := NewProgressWriterEvery(&bytes.Buffer{}, 10, func(int64, time.Duration) { calls++ })

	if _, err := pw.Write(make([]byte, 35)); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("updateFunc calls = %d, want 1", calls)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{500, "500 B"},
		{1536, "1.5 KiB"},
		{10 * 1024 * 1024, "10 MiB"},
		{-1, "0 B"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatBytes(tt.bytes); got != tt.want {
				t.Errorf("FormatBytes(%d) = %v, want %v", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatRate(t *testing.T) {
	if got := FormatRate(2048); !strings.HasSuffix(got, "/s") || !strings.HasPrefix(got, "2.0 KiB") {
		t.Errorf("FormatRate(2048) = %v, want 2.0 KiB/s", got)
	}
}

func TestBufferPool_Copy(t *testing.T) {
	pool := NewBufferPool(4)
	src := strings.NewReader("some dump content")
	var dst bytes.Buffer

	n, err := pool.Copy(&dst, src)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if n != int64(len("some dump content")) || dst.String() != "some dump content" {
		t.Errorf("Copy() = %d, %q", n, dst.String())
	}

	buf := pool.Get()
	if len(*buf) != 4 {
		t.Errorf("Get() len = %d, want 4", len(*buf))
	}
	pool.Put(buf)
}
