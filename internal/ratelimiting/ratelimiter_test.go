package ratelimiting

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketRateLimiter(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping test in short mode")
	}
	rateLimiter, cleanup := NewTokenBucketRateLimiter(1, 2)
	defer cleanup()

	assert.True(t, rateLimiter.Consume("user: 2"))

	// Burst of 2
	assert.True(t, rateLimiter.Consume("user: 1"))
	assert.True(t, rateLimiter.Consume("user: 1"))
	assert.False(t, rateLimiter.Consume("user: 1"))

	time.Sleep(1000 * time.Millisecond)
	runtime.Gosched()

	// Refill rate of 1
	assert.True(t, rateLimiter.Consume("user: 1"))
	assert.False(t, rateLimiter.Consume("user: 1"))

	// Burst of 2 - even after refill
	assert.True(t, rateLimiter.Consume("user: 3"))
	assert.True(t, rateLimiter.Consume("user: 3"))
	assert.False(t, rateLimiter.Consume("user: 3"))

	assert.True(t, rateLimiter.Consume("user: 2"))
	assert.True(t, rateLimiter.Consume("user: 2"))
	assert.False(t, rateLimiter.Consume("user: 2"))
}
