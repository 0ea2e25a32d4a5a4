package redis

import (
	"context"
	"testing"
	"time"

	"github.com/wonny/ffrank/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
			TTL:     time.Hour,
		},
	}

	client, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
	if client.DefaultTTL() != time.Hour {
		t.Errorf("Expected TTL 1h, got %v", client.DefaultTTL())
	}
}

func TestDisabledDefaultTTL(t *testing.T) {
	if got := Disabled().DefaultTTL(); got != TTLDaily {
		t.Errorf("Expected default TTL %v, got %v", TTLDaily, got)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Error("nil client must report disabled")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")
	cfg := APIRateLimit("topk", 5)

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != cfg.Limit {
		t.Errorf("Expected remaining = %d, got %d", cfg.Limit, remaining)
	}
	if limiter.Enabled() {
		t.Error("Expected limiter to report disabled")
	}
}

func TestAPIRateLimit(t *testing.T) {
	tests := []struct {
		perSecond float64
		want      int
	}{
		{20, 20},
		{2.7, 2},
		{0.5, 1},
		{0, 1},
	}

	for _, tt := range tests {
		got := APIRateLimit("topk", tt.perSecond)
		if got.Limit != tt.want {
			t.Errorf("APIRateLimit(%v).Limit = %d, want %d", tt.perSecond, got.Limit, tt.want)
		}
		if got.Window != time.Second {
			t.Errorf("Expected 1s window, got %v", got.Window)
		}
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(ctx, "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}
	if err := cache.Set(ctx, "key", "value", 0); err != nil {
		t.Errorf("Set() error = %v", err)
	}
	if err := cache.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "TopKKey latest",
			fn:       func() string { return TopKKey("abcd", "cfg1", "", 5, 50) },
			expected: "topk:abcd:cfg1:latest:b5:k50",
		},
		{
			name:     "TopKKey as_of",
			fn:       func() string { return TopKKey("abcd", "cfg1", "2020-01", 3, 10) },
			expected: "topk:abcd:cfg1:2020-01:b3:k10",
		},
		{
			name:     "TopKKey config hash truncated",
			fn:       func() string { return TopKKey("abcd", "0123456789abcdef", "", 5, 50) },
			expected: "topk:abcd:0123456789ab:latest:b5:k50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
