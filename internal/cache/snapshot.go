// Package cache implements the stale-while-revalidate snapshot layer that
// sits in front of all upstream reads. Editors render from a fresh-enough
// local snapshot immediately and refresh in the background; refreshed data
// is merged into the previous state without disturbing unchanged values.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Snapshot is one persisted entity state with its storage timestamp. The
// timestamp bounds freshness; the payload stays opaque to the store.
type Snapshot struct {
	StoredAt time.Time       `json:"stored_at"`
	Data     json.RawMessage `json:"data"`
}

// SnapshotStore persists entity snapshots keyed by entity name and variant.
type SnapshotStore interface {
	// Get looks up a snapshot by key. The second return reports presence.
	Get(ctx context.Context, key string) (Snapshot, bool, error)

	// Put stores a snapshot, replacing any previous one under the key.
	Put(ctx context.Context, key string, snap Snapshot) error

	// Delete removes a snapshot. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// FormatSnapshotKey builds the standard snapshot key.
func FormatSnapshotKey(entity, variant string) string {
	return fmt.Sprintf("snap:%s:%s", entity, variant)
}

// --- MemorySnapshotStore ---

// MemorySnapshotStore is an in-memory SnapshotStore. Suitable for testing
// and single-instance deployments.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewMemorySnapshotStore creates a new in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		snapshots: make(map[string]Snapshot),
	}
}

// Get looks up a snapshot.
func (s *MemorySnapshotStore) Get(_ context.Context, key string) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.snapshots[key]
	return snap, exists, nil
}

// Put stores a snapshot.
func (s *MemorySnapshotStore) Put(_ context.Context, key string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[key] = snap
	return nil
}

// Delete removes a snapshot.
func (s *MemorySnapshotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, key)
	return nil
}

// Len returns the number of stored snapshots. For testing.
func (s *MemorySnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
