package publish

import (
	"context"
	"sync"
	"time"
)

// GroupStatus is the outcome of one feature-group sync within a publish.
type GroupStatus string

const (
	GroupOK      GroupStatus = "ok"
	GroupSkipped GroupStatus = "skipped"
	GroupFailed  GroupStatus = "failed"
)

// GroupResult records what one feature-group sync did.
type GroupResult struct {
	Group       string      `json:"group"`
	Status      GroupStatus `json:"status"`
	KeysWritten int         `json:"keys_written"`
	KeysDeleted int         `json:"keys_deleted"`
	Error       string      `json:"error,omitempty"`
}

// Record is the journal entry for one publish attempt. Group failures are
// swallowed at publish time; the journal is where they remain visible.
type Record struct {
	ID         string        `json:"id"`
	Distro     string        `json:"distro"`
	Groups     []GroupResult `json:"groups"`
	ScreensOK  bool          `json:"screens_ok"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Journal persists publish records for operational review.
type Journal interface {
	// Append stores one publish record.
	Append(ctx context.Context, rec Record) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// --- MemoryJournal ---

// MemoryJournal is an in-memory Journal. Suitable for testing and
// single-instance deployments.
type MemoryJournal struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryJournal creates a new in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Append stores a record.
func (j *MemoryJournal) Append(_ context.Context, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.records = append(j.records, rec)
	return nil
}

// Recent returns up to limit records, newest first.
func (j *MemoryJournal) Recent(_ context.Context, limit int) ([]Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	n := len(j.records)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Record, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, j.records[i])
	}
	return out, nil
}
