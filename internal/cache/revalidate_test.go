package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panelState struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

// mergePanels implements the identity-preserving merge contract.
func mergePanels(prev, fresh *panelState) *panelState {
	if prev != nil && fresh != nil && *prev == *fresh {
		return prev
	}
	return fresh
}

// countingStore wraps a SnapshotStore and counts writes.
type countingStore struct {
	SnapshotStore
	puts atomic.Int64
}

func (s *countingStore) Put(ctx context.Context, key string, snap Snapshot) error {
	s.puts.Add(1)
	return s.SnapshotStore.Put(ctx, key, snap)
}

func TestRefresh_firstFetchPersists(t *testing.T) {
	store := &countingStore{SnapshotStore: NewMemorySnapshotStore()}
	r := NewRevalidator(store, "snap:panel:main", time.Minute,
		func(context.Context) (*panelState, error) {
			return &panelState{Title: "Deposits", Count: 3}, nil
		},
		mergePanels,
	)

	got, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &panelState{Title: "Deposits", Count: 3}, got)
	assert.Equal(t, int64(1), store.puts.Load())

	cur, ok := r.Current()
	require.True(t, ok)
	assert.Same(t, got, cur)
}

func TestRefresh_valueEqualKeepsPreviousReference(t *testing.T) {
	store := &countingStore{SnapshotStore: NewMemorySnapshotStore()}
	r := NewRevalidator(store, "snap:panel:main", time.Minute,
		func(context.Context) (*panelState, error) {
			// Every fetch allocates a new object with the same contents.
			return &panelState{Title: "Deposits", Count: 3}, nil
		},
		mergePanels,
	)

	first, err := r.Refresh(context.Background())
	require.NoError(t, err)
	second, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second, "value-equal merge must return the previous reference")
	assert.Equal(t, int64(1), store.puts.Load(), "unchanged state must not be re-persisted")
}

func TestRefresh_changedValuePersistsNewReference(t *testing.T) {
	store := &countingStore{SnapshotStore: NewMemorySnapshotStore()}
	var count atomic.Int64
	r := NewRevalidator(store, "snap:panel:main", time.Minute,
		func(context.Context) (*panelState, error) {
			return &panelState{Title: "Deposits", Count: int(count.Add(1))}, nil
		},
		mergePanels,
	)

	first, err := r.Refresh(context.Background())
	require.NoError(t, err)
	second, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, second.Count)
	assert.Equal(t, int64(2), store.puts.Load())

	snap, found, err := store.Get(context.Background(), "snap:panel:main")
	require.NoError(t, err)
	require.True(t, found)
	var stored panelState
	require.NoError(t, json.Unmarshal(snap.Data, &stored))
	assert.Equal(t, 2, stored.Count)
}

func TestRead_freshSnapshotServedImmediately(t *testing.T) {
	store := NewMemorySnapshotStore()
	data, _ := json.Marshal(panelState{Title: "Cached", Count: 1})
	require.NoError(t, store.Put(context.Background(), "snap:panel:main", Snapshot{
		StoredAt: time.Now(),
		Data:     data,
	}))

	fetched := make(chan struct{}, 1)
	r := NewRevalidator(store, "snap:panel:main", time.Minute,
		func(context.Context) (*panelState, error) {
			fetched <- struct{}{}
			return &panelState{Title: "Cached", Count: 1}, nil
		},
		mergePanels,
	)

	got, source, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, source)
	assert.Equal(t, "Cached", got.Title)

	// The background refresh still runs.
	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh never fetched")
	}
}

func TestRead_staleSnapshotFetchesSynchronously(t *testing.T) {
	store := NewMemorySnapshotStore()
	data, _ := json.Marshal(panelState{Title: "Old", Count: 1})
	require.NoError(t, store.Put(context.Background(), "snap:panel:main", Snapshot{
		StoredAt: time.Now().Add(-time.Hour),
		Data:     data,
	}))

	r := NewRevalidator(store, "snap:panel:main", time.Minute,
		func(context.Context) (*panelState, error) {
			return &panelState{Title: "Fresh", Count: 2}, nil
		},
		mergePanels,
	)

	got, source, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceUpstream, source)
	assert.Equal(t, "Fresh", got.Title)
}

func TestRead_fetchErrorSurfacesWithoutSnapshot(t *testing.T) {
	r := NewRevalidator(NewMemorySnapshotStore(), "snap:panel:main", time.Minute,
		func(context.Context) (*panelState, error) {
			return nil, errors.New("upstream down")
		},
		mergePanels,
	)

	_, _, err := r.Read(context.Background())
	assert.Error(t, err)
}

func TestInvalidate_dropsStateAndSnapshot(t *testing.T) {
	store := NewMemorySnapshotStore()
	r := NewRevalidator[*panelState](store, "snap:panel:main", time.Minute,
		func(context.Context) (*panelState, error) {
			return &panelState{Title: "Deposits"}, nil
		},
		mergePanels,
	)

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	require.NoError(t, r.Invalidate(context.Background()))
	assert.Equal(t, 0, store.Len())
	_, ok := r.Current()
	assert.False(t, ok)
}
