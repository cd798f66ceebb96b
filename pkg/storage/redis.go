// Package storage provides sweep run record storage implementations.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements the Store interface on Redis. It keeps the same
// transient JSON snapshot as MemoryStore but shares it across processes
// and survives runner restarts for the duration of the TTL, which matters
// for sweeps that take hours of queue time on hardware backends.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
}

// NewRedisStore creates a Redis-backed run store.
//
// addr is the Redis server address, password may be empty, db is the
// database number, and ttl is the record expiry (0 uses 24 hours, long
// enough to cover a hardware queue).
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}

	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

// Put stores a run record under "coldatom:run:{name}" with the store TTL.
func (r *RedisStore) Put(ctx context.Context, record RunRecord) error {
	if record.Run == "" {
		return errors.New("record run name required")
	}

	for _, c := range record.Run {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_') {
			return fmt.Errorf("invalid run name %q: only alphanumeric, hyphens, and underscores allowed", record.Run)
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := fmt.Sprintf("coldatom:run:%s", record.Run)

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store record in redis: %w", err)
	}

	return nil
}

// GetLatest retrieves the latest record for a run.
func (r *RedisStore) GetLatest(ctx context.Context, run string) (RunRecord, bool, error) {
	if run == "" {
		return RunRecord{}, false, errors.New("run name required")
	}

	key := fmt.Sprintf("coldatom:run:%s", run)

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return RunRecord{}, false, nil
		}
		return RunRecord{}, false, fmt.Errorf("failed to get record from redis: %w", err)
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return RunRecord{}, false, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return record, true, nil
}

// Close closes the Redis client connection. Safe to call multiple times.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil
	if err != nil && err.Error() == "redis: client is closed" {
		return nil
	}

	return err
}

// Ping checks the Redis connection health.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
