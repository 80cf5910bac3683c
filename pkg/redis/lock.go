package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out advisory locks (SET NX PX) keyed by name.
// With Redis disabled every Obtain succeeds immediately.
type Locker struct {
	client *Client
	prefix string
	retry  time.Duration
}

// NewLocker creates a lock helper
func NewLocker(client *Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
		retry:  100 * time.Millisecond,
	}
}

// only the holder's token may delete the key
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Obtain blocks until the lock is held or ctx is done. The returned
// release func is always non-nil and safe to call once.
func (l *Locker) Obtain(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	if !l.client.Enabled() {
		return func() {}, nil
	}

	key := fmt.Sprintf("%s:lock:%s", l.prefix, name)
	token := uuid.NewString()
	rdb := l.client.Redis()

	for {
		ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return func() {}, fmt.Errorf("lock %s: %w", name, err)
		}
		if ok {
			return func() {
				// release must outlive a cancelled request context
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, rdb, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return func() {}, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}
