// Package privatedb talks to the OVH hosting private database dump API.
package privatedb

import (
	"context"
	"time"
)

// API defines the dump operations the backup workflow needs.
type API interface {
	// ListDumps returns the ids of all dumps currently retained for the database.
	ListDumps(ctx context.Context) ([]int64, error)

	// CreateDump asks OVH to start a new dump. The new dump id is not known yet.
	CreateDump(ctx context.Context) (*Task, error)

	// GetDump returns the metadata of one dump.
	GetDump(ctx context.Context, id int64) (*Dump, error)
}

// Dump is a completed dump as reported by OVH.
type Dump struct {
	ID           int64      `json:"id"`
	DumpID       int64      `json:"dumpId"`
	DatabaseName string     `json:"databaseName"`
	URL          string     `json:"url"`
	CreationDate time.Time  `json:"creationDate"`
	DeletionDate *time.Time `json:"deletionDate,omitempty"`
	Orphan       bool       `json:"orphan"`
}

// Task is the asynchronous operation returned by a create call.
type Task struct {
	ID           int64      `json:"id"`
	Function     string     `json:"function"`
	Status       string     `json:"status"`
	DatabaseName string     `json:"databaseName"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	DoneDate     *time.Time `json:"doneDate,omitempty"`
}

// Newest returns the largest id, false when ids is empty.
func Newest(ids []int64) (int64, bool) {
	if len(ids) == 0 {
		return 0, false
	}
	newest := ids[0]
	for _, id := range ids[1:] {
		if id > newest {
			newest = id
		}
	}
	return newest, true
}
