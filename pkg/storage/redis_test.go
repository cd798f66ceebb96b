//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// setupRedisContainer starts a Redis container for testing.
func setupRedisContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	endpoint, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	addr := endpoint
	if len(endpoint) > 8 && endpoint[:8] == "redis://" {
		addr = endpoint[8:]
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return addr
}

func TestRedisStore_NewRedisStore_Success(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, time.Minute)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRedisStore_NewRedisStore_InvalidParams(t *testing.T) {
	if _, err := NewRedisStore("", "", 0, time.Minute); err == nil {
		t.Error("expected error for empty address")
	}
	if _, err := NewRedisStore("localhost:6379", "", -1, time.Minute); err == nil {
		t.Error("expected error for negative db")
	}
}

func TestRedisStore_Put_Get(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	record := testRecord("gauge-scan")

	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, found, err := store.GetLatest(ctx, "gauge-scan")
	if err != nil {
		t.Fatalf("GetLatest() error: %v", err)
	}
	if !found {
		t.Fatal("GetLatest() did not find stored record")
	}
	if got.Backend != record.Backend {
		t.Errorf("Backend = %q, want %q", got.Backend, record.Backend)
	}
	if got.Completed != record.Completed {
		t.Errorf("Completed = %d, want %d", got.Completed, record.Completed)
	}
	if len(got.Series["lz_0"]) != len(record.Series["lz_0"]) {
		t.Errorf("series length = %d, want %d", len(got.Series["lz_0"]), len(record.Series["lz_0"]))
	}
	if len(got.JobIDs) != len(record.JobIDs) {
		t.Errorf("job ids length = %d, want %d", len(got.JobIDs), len(record.JobIDs))
	}
}

func TestRedisStore_Put_InvalidRunName(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.Put(ctx, RunRecord{}); err == nil {
		t.Error("expected error for empty run name")
	}
	if err := store.Put(ctx, RunRecord{Run: "bad name!"}); err == nil {
		t.Error("expected error for run name with invalid characters")
	}
}

func TestRedisStore_GetLatest_NotFound(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}
	defer store.Close()

	_, found, err := store.GetLatest(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetLatest() error: %v", err)
	}
	if found {
		t.Error("GetLatest() found a record that was never stored")
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, time.Second)
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, testRecord("short-lived")); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	_, found, err := store.GetLatest(ctx, "short-lived")
	if err != nil {
		t.Fatalf("GetLatest() error: %v", err)
	}
	if found {
		t.Error("record should have expired")
	}
}

func TestRedisStore_Close_Idempotent(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("first Close() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}
