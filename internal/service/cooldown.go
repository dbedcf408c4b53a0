package service

import (
	"sync"
	"time"
)

// CooldownLimiter tracks the last expensive invocation per user. Callers
// that fail to acquire get an immediate rejection with the remaining wait;
// there is no queuing.
type CooldownLimiter struct {
	mu   sync.Mutex
	last map[int64]time.Time
	now  func() time.Time
}

func NewCooldownLimiter() *CooldownLimiter {
	return &CooldownLimiter{
		last: make(map[int64]time.Time),
		now:  time.Now,
	}
}

// TryAcquire stamps the current time and returns true if the cooldown has
// elapsed (or the user has no stamp). Otherwise it returns false and the
// remaining wait in whole seconds, rounded up.
func (l *CooldownLimiter) TryAcquire(userID int64, cooldown time.Duration) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.last[userID]; ok {
		elapsed := now.Sub(last)
		if elapsed < cooldown {
			remaining := cooldown - elapsed
			secs := int((remaining + time.Second - 1) / time.Second)
			return false, secs
		}
	}
	l.last[userID] = now
	return true, 0
}

// Release clears the user's stamp so the next TryAcquire succeeds. Used to
// roll back a token when the guarded action is rejected before it starts.
func (l *CooldownLimiter) Release(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.last, userID)
}

// Forget drops the user's stamp on disconnect.
func (l *CooldownLimiter) Forget(userID int64) {
	l.Release(userID)
}
