package lease

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLease(t *testing.T, ttl time.Duration) (*RedisLease, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLease(rdb, ttl), mr
}

func TestRedisLeaseExclusive(t *testing.T) {
	l, _ := newRedisLease(t, time.Minute)
	ctx := context.Background()

	tok, err := l.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "s1"); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
	if _, err := l.Acquire(ctx, "s2"); err != nil {
		t.Fatalf("other session: %v", err)
	}
	if err := l.Refresh(ctx, tok); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := l.Release(ctx, tok); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := l.Acquire(ctx, "s1"); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestRedisLeaseExpiry(t *testing.T) {
	l, mr := newRedisLease(t, time.Second)
	ctx := context.Background()

	tok, err := l.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if err := l.Refresh(ctx, tok); !errors.Is(err, ErrLost) {
		t.Fatalf("expected ErrLost after expiry, got %v", err)
	}
	other, err := l.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	// a stale owner must not release the new owner's lease
	if err := l.Release(ctx, tok); !errors.Is(err, ErrLost) {
		t.Fatalf("expected ErrLost for stale release, got %v", err)
	}
	if err := l.Refresh(ctx, other); err != nil {
		t.Fatalf("new owner refresh: %v", err)
	}
}

func TestRedisLeaseRefreshExtendsTTL(t *testing.T) {
	l, mr := newRedisLease(t, 2*time.Second)
	ctx := context.Background()

	tok, err := l.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	mr.FastForward(1500 * time.Millisecond)
	if err := l.Refresh(ctx, tok); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	mr.FastForward(1500 * time.Millisecond)
	if _, err := l.Acquire(ctx, "s1"); !errors.Is(err, ErrHeld) {
		t.Fatalf("refresh did not extend the lease: %v", err)
	}
}

func TestLocalLease(t *testing.T) {
	l := NewLocalLease(time.Minute)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	tok, err := l.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "s1"); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if err := l.Refresh(ctx, tok); !errors.Is(err, ErrLost) {
		t.Fatalf("expected ErrLost, got %v", err)
	}
	other, err := l.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	if err := l.Release(ctx, tok); !errors.Is(err, ErrLost) {
		t.Fatalf("stale release: %v", err)
	}
	if err := l.Release(ctx, other); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := l.Release(ctx, other); err != nil {
		t.Fatalf("double Release: %v", err)
	}
}

func TestRedisLeaseWatchRaceIsLost(t *testing.T) {
	l, _ := newRedisLease(t, time.Minute)
	ctx := context.Background()

	tok, err := l.Acquire(ctx, "s1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	// Another writer touches the key between the owner check and EXEC.
	l.beforeCommit = func() {
		if err := l.rdb.Set(ctx, l.key("s1"), tok.Owner, time.Minute).Err(); err != nil {
			t.Errorf("concurrent set: %v", err)
		}
	}
	if err := l.Refresh(ctx, tok); !errors.Is(err, ErrLost) {
		t.Fatalf("Refresh during race = %v, want ErrLost", err)
	}
	if err := l.Release(ctx, tok); !errors.Is(err, ErrLost) {
		t.Fatalf("Release during race = %v, want ErrLost", err)
	}

	l.beforeCommit = nil
	if err := l.Refresh(ctx, tok); err != nil {
		t.Fatalf("Refresh after race: %v", err)
	}
}
