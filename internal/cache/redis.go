package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore is a Redis-backed SnapshotStore shared across
// instances. Entries carry a retention TTL so abandoned variants age out;
// freshness within the retention window is judged by the revalidator, not
// by Redis expiry.
type RedisSnapshotStore struct {
	client    redis.Cmdable
	retention time.Duration
}

// NewRedisSnapshotStore creates a Redis-backed snapshot store. A zero
// retention keeps entries until overwritten or deleted.
func NewRedisSnapshotStore(client redis.Cmdable, retention time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, retention: retention}
}

// Get looks up a snapshot in Redis.
func (s *RedisSnapshotStore) Get(ctx context.Context, key string) (Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("redis get %q: %w", key, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("unmarshal snapshot %q: %w", key, err)
	}
	return snap, true, nil
}

// Put stores a snapshot in Redis with the retention TTL.
func (s *RedisSnapshotStore) Put(ctx context.Context, key string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, key, data, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete removes a snapshot from Redis.
func (s *RedisSnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}
