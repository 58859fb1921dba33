package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/campus-events/apiserver/config"
)

func TestDecisionRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		retry time.Duration
		want  int
	}{
		{0, 0},
		{time.Millisecond, 1},
		{time.Second, 1},
		{2500 * time.Millisecond, 3},
		{-time.Second, 0},
	}
	for _, tc := range cases {
		if got := (Decision{RetryAfter: tc.retry}).RetryAfterSeconds(); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.retry, tc.want, got)
		}
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	cases := []config.RateLimitConfig{
		{Enabled: false, RedisAddr: "localhost:6379"},
		{Enabled: true, RedisAddr: "  "},
	}
	for _, cfg := range cases {
		limiter, err := Open(context.Background(), cfg)
		if err != nil {
			t.Fatalf("%+v: expected no error, got %v", cfg, err)
		}
		if limiter != nil {
			t.Fatalf("%+v: expected no limiter", cfg)
		}
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	limiter := New(nil, config.RateLimitConfig{Capacity: 0, TTL: 0, Prefix: " "})
	if limiter.capacity != 1 {
		t.Fatalf("expected capacity 1, got %d", limiter.capacity)
	}
	if limiter.ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", limiter.ttl)
	}
	if limiter.prefix != "rl" {
		t.Fatalf("expected prefix rl, got %q", limiter.prefix)
	}
}

func TestAsInt64(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want int64
	}{
		{int64(4), 4},
		{7, 7},
		{float64(2), 2},
		{"12", 12},
		{"x", 0},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := asInt64(tc.in); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.in, tc.want, got)
		}
	}
}
