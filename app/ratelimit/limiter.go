package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// Limiter enforces a fixed-window request budget per caller. With Redis
// the window counters are shared across instances; without it (or when
// Redis errors mid-request) the limiter falls back to a process-local
// window, which is single-instance-only by design.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration

	mu      sync.Mutex
	local   map[string]*localWindow
	stopped chan struct{}
}

type localWindow struct {
	count   int
	resetAt time.Time
}

// Result describes the caller's budget after counting one request.
// ResetAt is when the current window expires and the count starts over.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

func NewLimiter(redisAddr, redisPassword string, limit, windowSec int) *Limiter {
	l := &Limiter{
		limit:   limit,
		window:  time.Duration(windowSec) * time.Second,
		local:   make(map[string]*localWindow),
		stopped: make(chan struct{}),
	}

	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:         redisAddr,
			Password:     redisPassword,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unavailable, rate limiter using in-memory fallback", "addr", redisAddr, "error", err)
		} else {
			l.client = client
		}
	}

	go l.sweep()

	return l
}

// Check counts the request against the caller's fixed window and
// reports the remaining budget. The Redis error path fails open into
// the local fallback: it still counts, so an unreachable Redis degrades
// to per-instance limiting rather than denial of all traffic.
func (l *Limiter) Check(ctx context.Context, key string) Result {
	if l.client != nil {
		result, err := l.checkRedis(ctx, key)
		if err == nil {
			return result
		}
		slog.Warn("Rate limiter redis error, falling back to in-memory window", "error", err)
	}

	return l.checkLocal(key)
}

// checkRedis counts the request in a shared fixed window: INCR, then
// EXPIRE only when this request opened the window. ResetAt comes from
// the key's remaining TTL on subsequent requests.
func (l *Limiter) checkRedis(ctx context.Context, key string) (Result, error) {
	redisKey := keyPrefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("failed to increment counter: %w", err)
	}

	var resetAt time.Time
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("failed to set window expiry: %w", err)
		}
		resetAt = time.Now().Add(l.window)
	} else {
		ttl, err := l.client.TTL(ctx, redisKey).Result()
		if err != nil {
			return Result{}, fmt.Errorf("failed to read window expiry: %w", err)
		}
		if ttl < 0 {
			// Counter without an expiry, e.g. a crash between INCR
			// and EXPIRE. Re-arm the window.
			ttl = l.window
			if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
				return Result{}, fmt.Errorf("failed to set window expiry: %w", err)
			}
		}
		resetAt = time.Now().Add(ttl)
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(l.limit),
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func (l *Limiter) checkLocal(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	win, ok := l.local[key]
	if !ok || now.After(win.resetAt) {
		win = &localWindow{count: 1, resetAt: now.Add(l.window)}
		l.local[key] = win
	} else {
		win.count++
	}

	remaining := l.limit - win.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   win.count <= l.limit,
		Remaining: remaining,
		ResetAt:   win.resetAt,
	}
}

// sweep drops expired local windows so the fallback map cannot grow
// unbounded under churning caller keys.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopped:
			return
		case <-ticker.C:
			now := time.Now()
			l.mu.Lock()
			for key, win := range l.local {
				if now.After(win.resetAt) {
					delete(l.local, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *Limiter) Close() {
	close(l.stopped)
	if l.client != nil {
		l.client.Close()
	}
}
