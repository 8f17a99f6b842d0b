package lease

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * time.Second

var (
	// ErrHeld means another owner controls the session.
	ErrHeld = errors.New("session lease held by another owner")
	// ErrLost means the lease expired or was taken over before refresh/release.
	ErrLost = errors.New("session lease lost")
)

// Token proves ownership of one session lease.
type Token struct {
	SessionID string
	Owner     string
}

// Lease guarantees at most one live controller per session id, including
// across processes sharing the same redis.
type Lease interface {
	Acquire(ctx context.Context, sessionID string) (Token, error)
	Refresh(ctx context.Context, tok Token) error
	Release(ctx context.Context, tok Token) error
}

type RedisLease struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string

	beforeCommit func()
}

func NewRedisLease(rdb *redis.Client, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLease{rdb: rdb, ttl: ttl, prefix: "arena:lease:"}
}

func (l *RedisLease) key(sessionID string) string { return l.prefix + strings.TrimSpace(sessionID) }

func (l *RedisLease) Acquire(ctx context.Context, sessionID string) (Token, error) {
	tok := Token{SessionID: sessionID, Owner: uuid.NewString()}
	ok, err := l.rdb.SetNX(ctx, l.key(sessionID), tok.Owner, l.ttl).Result()
	if err != nil {
		return Token{}, err
	}
	if !ok {
		return Token{}, ErrHeld
	}
	return tok, nil
}

func (l *RedisLease) Refresh(ctx context.Context, tok Token) error {
	key := l.key(tok.SessionID)
	return l.ownerTx(ctx, tok, ErrLost, func(pipe redis.Pipeliner) {
		pipe.PExpire(ctx, key, l.ttl)
	})
}

func (l *RedisLease) Release(ctx context.Context, tok Token) error {
	key := l.key(tok.SessionID)
	return l.ownerTx(ctx, tok, nil, func(pipe redis.Pipeliner) {
		pipe.Del(ctx, key)
	})
}

// ownerTx runs op only while tok still owns the key. A missing key returns
// missing; a foreign owner or a write racing the WATCH returns ErrLost.
func (l *RedisLease) ownerTx(ctx context.Context, tok Token, missing error, op func(redis.Pipeliner)) error {
	key := l.key(tok.SessionID)
	err := l.rdb.Watch(ctx, func(tx *redis.Tx) error {
		owner, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return missing
		}
		if err != nil {
			return err
		}
		if owner != tok.Owner {
			return ErrLost
		}
		if l.beforeCommit != nil {
			l.beforeCommit()
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			op(pipe)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrLost
	}
	return err
}

// LocalLease is the in-process fallback when no redis is configured.
type LocalLease struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	owners map[string]localEntry
}

type localEntry struct {
	owner   string
	expires time.Time
}

func NewLocalLease(ttl time.Duration) *LocalLease {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &LocalLease{ttl: ttl, now: time.Now, owners: make(map[string]localEntry)}
}

func (l *LocalLease) Acquire(_ context.Context, sessionID string) (Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.owners[sessionID]; ok && l.now().Before(cur.expires) {
		return Token{}, ErrHeld
	}
	tok := Token{SessionID: sessionID, Owner: uuid.NewString()}
	l.owners[sessionID] = localEntry{owner: tok.Owner, expires: l.now().Add(l.ttl)}
	return tok, nil
}

func (l *LocalLease) Refresh(_ context.Context, tok Token) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.owners[tok.SessionID]
	if !ok || cur.owner != tok.Owner || !l.now().Before(cur.expires) {
		return ErrLost
	}
	cur.expires = l.now().Add(l.ttl)
	l.owners[tok.SessionID] = cur
	return nil
}

func (l *LocalLease) Release(_ context.Context, tok Token) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.owners[tok.SessionID]
	if !ok {
		return nil
	}
	if cur.owner != tok.Owner {
		return ErrLost
	}
	delete(l.owners, tok.SessionID)
	return nil
}
