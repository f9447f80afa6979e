package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRateLimiterDefaults(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		burst     float64
		wantRate  float64
		wantBurst float64
	}{
		{"explicit values", 10, 20, 10, 20},
		{"zero rate falls back", 0, 0, 10, 20},
		{"negative rate falls back", -5, 0, 10, 20},
		{"burst below rate raised to rate", 10, 5, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.rate, tt.burst)
			if rl.Rate() != tt.wantRate {
				t.Errorf("Rate() = %v, want %v", rl.Rate(), tt.wantRate)
			}
			if rl.Burst() != tt.wantBurst {
				t.Errorf("Burst() = %v, want %v", rl.Burst(), tt.wantBurst)
			}
		})
	}
}

func TestAllowConsumesBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)

	// Полное ведро: три запроса проходят сразу
	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d must be allowed within burst", i)
		}
	}

	// Ведро пусто, rate 1/сек не успевает пополнить
	if rl.Allow() {
		t.Error("request beyond burst must be denied")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(100, 1)

	if !rl.Allow() {
		t.Fatal("first request must pass")
	}
	if rl.Allow() {
		t.Fatal("bucket must be empty")
	}

	// 100 токенов/сек: за 50ms накапливается больше одного
	time.Sleep(50 * time.Millisecond)

	if !rl.Allow() {
		t.Error("token must be refilled after waiting")
	}
}

func TestWaitBlocksUntilToken(t *testing.T) {
	rl := NewRateLimiter(100, 1)

	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("second Wait failed: %v", err)
	}

	// Второй токен появляется примерно через 10ms при rate 100/сек
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait took too long: %v", elapsed)
	}
}

func TestWaitContextCancellation(t *testing.T) {
	rl := NewRateLimiter(0.001, 1) // следующий токен через ~17 минут
	if !rl.Allow() {
		t.Fatal("first request must pass")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestTokensReporting(t *testing.T) {
	rl := NewRateLimiter(10, 5)

	if tokens := rl.Tokens(); tokens < 4.9 {
		t.Errorf("fresh limiter must report full bucket, got %v", tokens)
	}

	rl.Allow()
	rl.Allow()

	if tokens := rl.Tokens(); tokens > 3.5 {
		t.Errorf("expected roughly 3 tokens after two requests, got %v", tokens)
	}
}
