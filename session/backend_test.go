package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func newRedisBackendTest(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisBackend(rdb, "as", 0), mr
}

func newSQLiteBackendTest(t *testing.T) *SQLiteBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.sqlite")
	b, err := NewSQLiteBackend(SQLiteStoreConfig{DSN: path})
	if err != nil {
		t.Fatalf("NewSQLiteBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()
	const key = "starship_company_session"

	if _, err := b.Get(ctx, key); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound on empty backend, got %v", err)
	}

	if err := b.Set(ctx, key, []byte(`{"id":"c1"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := b.Set(ctx, key, []byte(`{"id":"c2"}`)); err != nil {
		t.Fatalf("overwrite Set: %v", err)
	}
	got, err := b.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"id":"c2"}`)) {
		t.Fatalf("expected last write to win, got %s", got)
	}

	if _, err := b.Get(ctx, "cosmos_admin_session"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected namespaces to be disjoint, got %v", err)
	}

	if err := b.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := b.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := b.Get(ctx, key); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound after delete, got %v", err)
	}

	if err := b.Set(ctx, "  ", []byte("x")); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestMemoryBackend(t *testing.T) {
	exerciseBackend(t, NewMemoryBackend())
}

func TestMemoryBackendCopiesValues(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	value := []byte("abc")
	if err := b.Set(ctx, "k", value); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value[0] = 'z'
	got, _ := b.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("expected stored value to be isolated from caller, got %s", got)
	}
}

func TestRedisBackend(t *testing.T) {
	b, _ := newRedisBackendTest(t)
	exerciseBackend(t, b)
}

func TestRedisBackendPrefixAndTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	b := NewRedisBackend(rdb, "as", time.Hour)
	if err := b.Set(context.Background(), "starship_user_session", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("as:starship_user_session") {
		t.Fatal("expected prefixed key in redis")
	}
	if ttl := mr.TTL("as:starship_user_session"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func TestRedisBackendUnavailable(t *testing.T) {
	b, mr := newRedisBackendTest(t)
	mr.Close()

	ctx := context.Background()
	if _, err := b.Get(ctx, "k"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable from Get, got %v", err)
	}
	if err := b.Set(ctx, "k", []byte("v")); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable from Set, got %v", err)
	}
	if err := b.Delete(ctx, "k"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable from Delete, got %v", err)
	}
	if _, err := b.Ping(ctx); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable from Ping, got %v", err)
	}
}

func TestSQLiteBackend(t *testing.T) {
	exerciseBackend(t, newSQLiteBackendTest(t))
}

func TestSQLiteBackendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.sqlite")
	ctx := context.Background()

	first, err := NewSQLiteBackend(SQLiteStoreConfig{DSN: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Set(ctx, "cosmos_admin_session", []byte(`{"id":"a1"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = first.Close()

	second, err := NewSQLiteBackend(SQLiteStoreConfig{DSN: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, err := second.Get(ctx, "cosmos_admin_session")
	if err != nil || string(got) != `{"id":"a1"}` {
		t.Fatalf("expected record after reopen, got %q %v", got, err)
	}
}

func TestSQLiteBackendRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteBackend(SQLiteStoreConfig{}); err == nil {
		t.Fatal("expected empty DSN to be rejected")
	}
}

func TestPostgresBackend(t *testing.T) {
	_ = godotenv.Load("../.env")

	// Requires a disposable database; the session_records table is truncated.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres backend test")
	}

	ctx := context.Background()
	pool, err := NewPostgresPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	b, err := NewPostgresBackend(ctx, pool)
	if err != nil {
		t.Fatalf("NewPostgresBackend: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE session_records"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	exerciseBackend(t, b)
}
