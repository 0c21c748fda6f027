package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// FetchFunc retrieves the authoritative upstream state of one entity.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// MergeFunc folds freshly fetched state into the previous state. The
// contract: when the merged result is value-equal to prev, return prev
// itself so unchanged state keeps its identity; otherwise return a new
// value. With a pointer-typed T this makes change detection a single
// comparison.
type MergeFunc[T comparable] func(prev, fresh T) T

// Source reports where a Read served its value from.
type Source string

const (
	SourceSnapshot Source = "snapshot"
	SourceUpstream Source = "upstream"
)

// Revalidator serves one entity stale-while-revalidate: a snapshot no
// older than MaxAge renders immediately while a background refresh runs;
// anything older forces a synchronous fetch. Merged results that differ
// from the previous state are persisted back to the snapshot store.
type Revalidator[T comparable] struct {
	key    string
	maxAge time.Duration
	store  SnapshotStore
	fetch  FetchFunc[T]
	merge  MergeFunc[T]
	now    func() time.Time

	mu         sync.Mutex
	current    T
	hasCurrent bool
	refreshing bool
}

// NewRevalidator creates a revalidator for one snapshot key.
func NewRevalidator[T comparable](store SnapshotStore, key string, maxAge time.Duration, fetch FetchFunc[T], merge MergeFunc[T]) *Revalidator[T] {
	return &Revalidator[T]{
		key:    key,
		maxAge: maxAge,
		store:  store,
		fetch:  fetch,
		merge:  merge,
		now:    time.Now,
	}
}

// Current returns the last merged value, if any.
func (r *Revalidator[T]) Current() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.hasCurrent
}

// Read returns a value for rendering. A fresh snapshot is returned
// immediately and refreshed in the background; a stale or missing snapshot
// forces a synchronous refresh.
func (r *Revalidator[T]) Read(ctx context.Context) (T, Source, error) {
	if v, ok := r.loadFresh(ctx); ok {
		r.refreshAsync()
		return v, SourceSnapshot, nil
	}

	v, err := r.Refresh(ctx)
	if err != nil {
		var zero T
		return zero, SourceUpstream, err
	}
	return v, SourceUpstream, nil
}

// Refresh fetches the upstream state, merges it into the previous state,
// and persists the result when it changed. It returns the merged value.
func (r *Revalidator[T]) Refresh(ctx context.Context) (T, error) {
	fresh, err := r.fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	r.mu.Lock()
	prev, hasPrev := r.current, r.hasCurrent
	r.mu.Unlock()

	merged := fresh
	if hasPrev {
		merged = r.merge(prev, fresh)
	}

	// An unchanged merge keeps the previous identity and skips the write.
	if hasPrev && merged == prev {
		return prev, nil
	}

	if err := r.persist(ctx, merged); err != nil {
		slog.Warn("cache: persisting snapshot failed", "key", r.key, "error", err)
	}

	r.mu.Lock()
	r.current = merged
	r.hasCurrent = true
	r.mu.Unlock()

	return merged, nil
}

// Invalidate drops the in-memory state and the stored snapshot.
func (r *Revalidator[T]) Invalidate(ctx context.Context) error {
	r.mu.Lock()
	var zero T
	r.current = zero
	r.hasCurrent = false
	r.mu.Unlock()

	return r.store.Delete(ctx, r.key)
}

// loadFresh returns the in-memory or stored state when it is within MaxAge.
func (r *Revalidator[T]) loadFresh(ctx context.Context) (T, bool) {
	var zero T

	r.mu.Lock()
	if r.hasCurrent {
		v := r.current
		r.mu.Unlock()
		return v, true
	}
	r.mu.Unlock()

	snap, found, err := r.store.Get(ctx, r.key)
	if err != nil {
		slog.Warn("cache: reading snapshot failed", "key", r.key, "error", err)
		return zero, false
	}
	if !found || r.now().Sub(snap.StoredAt) > r.maxAge {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(snap.Data, &v); err != nil {
		slog.Warn("cache: decoding snapshot failed", "key", r.key, "error", err)
		return zero, false
	}

	r.mu.Lock()
	r.current = v
	r.hasCurrent = true
	r.mu.Unlock()

	return v, true
}

// refreshAsync starts a background refresh unless one is already running.
func (r *Revalidator[T]) refreshAsync() {
	r.mu.Lock()
	if r.refreshing {
		r.mu.Unlock()
		return
	}
	r.refreshing = true
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.refreshing = false
			r.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := r.Refresh(ctx); err != nil {
			slog.Debug("cache: background refresh failed", "key", r.key, "error", err)
		}
	}()
}

func (r *Revalidator[T]) persist(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot payload: %w", err)
	}
	return r.store.Put(ctx, r.key, Snapshot{StoredAt: r.now(), Data: data})
}
