package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownLimiterAcquire(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewCooldownLimiter()
	l.now = func() time.Time { return now }

	ok, _ := l.TryAcquire(1, 10*time.Second)
	assert.True(t, ok)

	// Immediately after, the full cooldown remains.
	ok, remaining := l.TryAcquire(1, 10*time.Second)
	assert.False(t, ok)
	assert.Equal(t, 10, remaining)

	// Partial wait rounds the remainder up.
	now = now.Add(7500 * time.Millisecond)
	ok, remaining = l.TryAcquire(1, 10*time.Second)
	assert.False(t, ok)
	assert.Equal(t, 3, remaining)

	// After the cooldown elapses the stamp renews.
	now = now.Add(3 * time.Second)
	ok, _ = l.TryAcquire(1, 10*time.Second)
	assert.True(t, ok)

	ok, _ = l.TryAcquire(1, 10*time.Second)
	assert.False(t, ok)
}

func TestCooldownLimiterUsersAreIndependent(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewCooldownLimiter()
	l.now = func() time.Time { return now }

	ok, _ := l.TryAcquire(1, 10*time.Second)
	assert.True(t, ok)
	ok, _ = l.TryAcquire(2, 10*time.Second)
	assert.True(t, ok)
}

func TestCooldownLimiterRelease(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewCooldownLimiter()
	l.now = func() time.Time { return now }

	ok, _ := l.TryAcquire(1, 10*time.Second)
	assert.True(t, ok)

	// Rolling back the token makes the next acquire succeed immediately.
	l.Release(1)
	ok, _ = l.TryAcquire(1, 10*time.Second)
	assert.True(t, ok)
}
