package services

import (
	"sync"
	"time"
)

// CreationRateLimiter remembers the last competition creation per
// (server, owner). It is process-local and intentionally forgets everything on
// restart: it only smooths creation spam, the persisted owner/server caps do
// the real limiting. It records, it never blocks; cooldown policy lives in
// the HTTP layer.
type CreationRateLimiter struct {
	mu   sync.Mutex
	last map[creationKey]time.Time
}

type creationKey struct {
	serverID string
	ownerID  string
}

func NewCreationRateLimiter() *CreationRateLimiter {
	return &CreationRateLimiter{last: make(map[creationKey]time.Time)}
}

// RecordCreation is called after a competition was successfully created.
func (l *CreationRateLimiter) RecordCreation(serverID, ownerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[creationKey{serverID, ownerID}] = time.Now()
}

// LastCreation returns the recorded time of the owner's most recent creation
// on the server, if any.
func (l *CreationRateLimiter) LastCreation(serverID, ownerID string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.last[creationKey{serverID, ownerID}]
	return t, ok
}

// OnCooldown reports whether the owner created a competition on the server
// within the given window. A non-positive window disables the cooldown.
func (l *CreationRateLimiter) OnCooldown(serverID, ownerID string, window time.Duration) bool {
	if window <= 0 {
		return false
	}
	t, ok := l.LastCreation(serverID, ownerID)
	return ok && time.Since(t) < window
}
