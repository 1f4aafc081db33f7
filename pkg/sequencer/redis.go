package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if this holder still owns it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// renewScript extends the lease only if this holder still owns it.
const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// RedisClient is the part of the Redis API the locker needs.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker is a Locker shared by every process using the same Redis.
// Leases expire after TTL so a crashed holder cannot block a key forever.
// While a lock is held its lease is renewed every TTL/3, so holders that wait
// on the ledger for longer than TTL keep the key.
type RedisLocker struct {
	Client RedisClient
	TTL    time.Duration
	Retry  time.Duration
	Prefix string
}

// Connect accepts either a redis:// URL or a bare host:port.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		return nil, errors.New("redis url required")
	}
	var client *redis.Client
	if strings.Contains(redisURL, "://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewRedisLocker creates a locker with the given lease TTL.
func NewRedisLocker(client RedisClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{Client: client, TTL: ttl, Retry: 25 * time.Millisecond, Prefix: "escrow:lock:"}
}

var _ Locker = (*RedisLocker)(nil)

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.Prefix + key
	token := uuid.NewString()

	for {
		ok, err := r.Client.SetNX(ctx, redisKey, token, r.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to lock %s: %w", key, ctx.Err())
		case <-time.After(r.Retry):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.renew(key, redisKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// The caller's context may already be cancelled; release regardless.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := r.Client.Eval(releaseCtx, releaseScript, []string{redisKey}, token).Err(); err != nil {
				slog.Error("failed to release lock", "key", key, "error", err)
			}
		})
	}, nil
}

// renew keeps the lease alive until stop is closed or the lease is lost.
func (r *RedisLocker) renew(key, redisKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	every := r.TTL / 3
	if every <= 0 {
		every = time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), every)
		n, err := r.Client.Eval(ctx, renewScript, []string{redisKey}, token, r.TTL.Milliseconds()).Int64()
		cancel()
		switch {
		case err != nil:
			slog.Warn("failed to renew lock lease", "key", key, "error", err)
		case n == 0:
			slog.Error("lock lease lost before release", "key", key)
			return
		}
	}
}
