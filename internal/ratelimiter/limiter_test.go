package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/octopus/bulletin-digest/internal/ratelimiter"
)

func TestLimiter_BurstPassesImmediately(t *testing.T) {
	l := ratelimiter.New(5)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	for i := 0; i < 5; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("wait %d: unexpected error: %v", i, err)
		}
	}
}

func TestLimiter_CancelledWhileWaiting(t *testing.T) {
	l := ratelimiter.New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("first wait: unexpected error: %v", err)
	}
	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected second wait to fail once the context expires")
	}
}

func TestLimiter_DisabledNeverBlocks(t *testing.T) {
	l := ratelimiter.New(0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	for i := 0; i < 1000; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("wait %d: unexpected error: %v", i, err)
		}
	}
}
