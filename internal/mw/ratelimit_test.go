package mw

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestAllowEnforcesBurstPerIP(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 2)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"), "burst of 2 is spent")

	assert.True(t, limiter.Allow("10.0.0.2"), "each client has its own bucket")
}

func TestSweepEvictsStaleClients(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1)

	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.2")

	// Age one client past the staleness cutoff.
	limiter.mu.Lock()
	limiter.clients["10.0.0.1"].lastSeen = time.Now().Add(-staleAfter - time.Minute)
	limiter.mu.Unlock()

	assert.Equal(t, 1, limiter.Sweep())

	limiter.mu.Lock()
	_, stale := limiter.clients["10.0.0.1"]
	_, active := limiter.clients["10.0.0.2"]
	limiter.mu.Unlock()
	assert.False(t, stale)
	assert.True(t, active)
}
