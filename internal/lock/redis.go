package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultLease = 10 * time.Second

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLocker adds a cross-process SET NX lease on top of the in-process mutex.
// It never waits on a foreign holder: the caller gets ErrBusy and decides.
type RedisLocker struct {
	client redis.UniversalClient
	local  *KeyedMutex
	prefix string
	lease  time.Duration
}

func NewRedisLocker(client redis.UniversalClient, prefix string, lease time.Duration) *RedisLocker {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &RedisLocker{client: client, local: NewKeyedMutex(), prefix: prefix, lease: lease}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	release, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	rkey := l.prefix + key
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, rkey, token, l.lease).Result()
	if err != nil {
		release()
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		release()
		return nil, ErrBusy
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{rkey}, token).Err()
		release()
	}, nil
}
