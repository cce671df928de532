// Package ratelimit caps how often one client may post chat messages.
//
// With Redis configured the limit is a fixed window shared by every server
// process. Without Redis, or while Redis is failing, each process falls back
// to its own token buckets so requests are never rejected because the limiter
// itself is down.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

const keyPrefix = "ratelimit:"

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// windowStore holds the shared fixed-window counters.
type windowStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	PExpire(ctx context.Context, key string, ttl time.Duration) error
	PTTL(ctx context.Context, key string) (time.Duration, error)
}

type redisStore struct {
	client *redis.Client
}

func (s redisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s redisStore) PExpire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.PExpire(ctx, key, ttl).Err()
}

func (s redisStore) PTTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.PTTL(ctx, key).Result()
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Limiter struct {
	store  windowStore
	max    int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	local     map[string]*bucket
	lastSweep time.Time
}

// New returns a limiter allowing max requests per window and key. client may
// be nil.
func New(client *redis.Client, max int, window time.Duration) *Limiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{
		max:    max,
		window: window,
		now:    time.Now,
		local:  make(map[string]*bucket),
	}
	if client != nil {
		l.store = redisStore{client: client}
	}
	return l
}

func (l *Limiter) Allow(ctx context.Context, key string) Result {
	if l.store != nil {
		res, err := l.allowShared(ctx, key)
		if err == nil {
			return res
		}
		slog.Warn("rate limit store unavailable, using local limiter", "error", err)
	}
	return l.allowLocal(key)
}

func (l *Limiter) allowShared(ctx context.Context, key string) (Result, error) {
	k := keyPrefix + key
	count, err := l.store.Incr(ctx, k)
	if err != nil {
		return Result{}, err
	}
	if count == 1 {
		if err := l.store.PExpire(ctx, k, l.window); err != nil {
			return Result{}, err
		}
	}

	res := Result{Limit: l.max, Allowed: count <= int64(l.max)}
	if res.Allowed {
		res.Remaining = l.max - int(count)
		return res, nil
	}

	ttl, err := l.store.PTTL(ctx, k)
	if err != nil {
		return Result{}, err
	}
	if ttl < 0 {
		// The key lost its expiry; restart the window.
		if err := l.store.PExpire(ctx, k, l.window); err != nil {
			return Result{}, err
		}
		ttl = l.window
	}
	res.RetryAfter = ttl
	return res, nil
}

func (l *Limiter) allowLocal(key string) Result {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}
	b, ok := l.local[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.max)), l.max)}
		l.local[key] = b
	}
	b.lastSeen = now
	lim := b.limiter
	l.mu.Unlock()

	res := Result{Limit: l.max}
	if lim.AllowN(now, 1) {
		res.Allowed = true
		res.Remaining = int(lim.TokensAt(now))
		return res
	}

	r := lim.ReserveN(now, 1)
	res.RetryAfter = r.DelayFrom(now)
	r.CancelAt(now)
	return res
}

// sweep drops buckets idle for a whole window. They have refilled by then,
// so a fresh bucket behaves the same. Callers hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	for key, b := range l.local {
		if now.Sub(b.lastSeen) >= l.window {
			delete(l.local, key)
		}
	}
	l.lastSweep = now
}

