package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrLocked is returned by TryLock when the lock is already held.
var ErrLocked = errors.New("lock is already held")

// Compare-and-delete so only the holder's token releases the key.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`

// TryLock attempts to acquire a distributed lock identified by key using
// SET NX EX. On success it returns an unlock function that must be called
// (typically via defer). If the lock is already held, ErrLocked is returned.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (unlock func(), err error) {
	token := randomToken()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// Background context so unlock still runs after the caller's context is cancelled.
		_ = r.client.Eval(context.Background(), unlockScript, []string{key}, token).Err()
	}, nil
}

// Locker hands out per-name locks under a common key prefix.
type Locker struct {
	r      *Redis
	prefix string
	ttl    time.Duration
}

// NewLocker returns a Locker whose keys are prefix+name and expire after ttl.
func NewLocker(r *Redis, prefix string, ttl time.Duration) *Locker {
	return &Locker{r: r, prefix: prefix, ttl: ttl}
}

// Lock acquires the lock for name or returns ErrLocked.
func (l *Locker) Lock(ctx context.Context, name string) (func(), error) {
	return TryLock(ctx, l.r, l.prefix+name, l.ttl)
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
