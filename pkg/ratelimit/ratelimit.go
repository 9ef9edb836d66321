package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter limits token consumption to a per-minute budget. It is used to
// stay under LLM provider token quotas in addition to request-rate limits.
type TokenLimiter struct {
	mu         sync.Mutex
	capacity   int
	remaining  int
	lastRefill time.Time
}

// NewTokenLimiter creates a limiter with the given tokens-per-minute budget.
func NewTokenLimiter(tokensPerMinute int) *TokenLimiter {
	return &TokenLimiter{
		capacity:   tokensPerMinute,
		remaining:  tokensPerMinute,
		lastRefill: time.Now(),
	}
}

// Wait blocks until n tokens are available or the context is cancelled.
func (l *TokenLimiter) Wait(ctx context.Context, n int) error {
	if n > l.capacity {
		n = l.capacity
	}
	for {
		l.mu.Lock()
		l.refillLocked()
		if l.remaining >= n {
			l.remaining -= n
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// GetRemaining returns the tokens still available in the current window.
func (l *TokenLimiter) GetRemaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()
	return l.remaining
}

func (l *TokenLimiter) refillLocked() {
	if time.Since(l.lastRefill) >= time.Minute {
		l.remaining = l.capacity
		l.lastRefill = time.Now()
	}
}
