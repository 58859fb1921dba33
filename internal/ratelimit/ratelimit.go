package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/campus-events/apiserver/config"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the retry delay up to whole seconds for the
// Retry-After header.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}

// tokenBucket refills one token per interval up to capacity and takes one
// token per call. The whole read-modify-write runs atomically in Redis.
var tokenBucket = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals)
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// Limiter is a Redis-backed token bucket shared by every API instance.
type Limiter struct {
	rdb      *redis.Client
	capacity int
	interval time.Duration
	ttl      time.Duration
	prefix   string
	now      func() time.Time
}

// New builds a limiter on an existing Redis client.
func New(rdb *redis.Client, cfg config.RateLimitConfig) *Limiter {
	capacity := cfg.Capacity
	if capacity < 1 {
		capacity = 1
	}
	ttl := cfg.TTL
	if ttl < time.Second {
		ttl = time.Minute
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "rl"
	}
	return &Limiter{
		rdb:      rdb,
		capacity: capacity,
		interval: cfg.RefillInterval,
		ttl:      ttl,
		prefix:   prefix,
		now:      time.Now,
	}
}

// Open connects to Redis and returns a limiter. It returns nil, nil when rate
// limiting is disabled or no Redis address is configured, and an error when
// Redis does not answer a ping.
func Open(ctx context.Context, cfg config.RateLimitConfig) (*Limiter, error) {
	if !cfg.Enabled || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(rdb, cfg), nil
}

// Allow takes one token from the bucket identified by the key parts.
func (l *Limiter) Allow(ctx context.Context, parts ...string) (Decision, error) {
	key := l.prefix + ":" + strings.Join(parts, ":")
	args := []any{
		l.now().UnixMilli(),
		l.capacity,
		l.interval.Milliseconds(),
		int64(l.ttl / time.Second),
	}

	vals, err := tokenBucket.Run(ctx, l.rdb, []string{key}, args...).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("run token bucket: %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, errors.New("unexpected token bucket result")
	}

	return Decision{
		Allowed:    asInt64(vals[0]) == 1,
		Limit:      l.capacity,
		Remaining:  asInt64(vals[1]),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

// Close releases the Redis client.
func (l *Limiter) Close() error {
	return l.rdb.Close()
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
