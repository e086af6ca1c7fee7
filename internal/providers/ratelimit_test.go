package providers

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_ConsumeAndRefill(t *testing.T) {
	r := NewRateLimiter(120) // 2/sec

	// Full bucket at start.
	if !r.TryConsume() {
		t.Fatal("expected token available on fresh limiter")
	}

	status := r.Status()
	if status.TokensLimit != 120 {
		t.Errorf("expected limit 120, got %d", status.TokensLimit)
	}
	if status.TotalConsumed != 1 {
		t.Errorf("expected 1 consumed, got %d", status.TotalConsumed)
	}
}

func TestRateLimiter_WaitBlocksWhenDrained(t *testing.T) {
	r := NewRateLimiter(60) // 1/sec
	for r.TryConsume() {
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := r.Wait(ctx); err == nil {
		t.Fatal("expected context deadline while waiting for token")
	}
}

func TestRateLimiter_DefaultRPM(t *testing.T) {
	r := NewRateLimiter(0)
	if got := r.Status().TokensLimit; got != 60 {
		t.Errorf("expected default limit 60, got %d", got)
	}
}
