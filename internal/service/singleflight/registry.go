// Package singleflight implements the single-flight registry: a
// per-user deny-on-conflict lock that records the normalized URL in
// flight, distinct from
// golang.org/x/sync/singleflight, which shares one result across
// concurrent callers instead of rejecting the second one.
package singleflight

import "sync"

// Registry tracks which user is currently analyzing which normalized
// URL. A second request from the same user while the first is in flight
// is denied rather than made to wait, whatever URL it names.
type Registry struct {
	mu       sync.Mutex
	inFlight map[string]string // key: userID -> normalized URL
}

func NewRegistry() *Registry {
	return &Registry{inFlight: make(map[string]string)}
}

// TryAcquire claims the lock for (userID, url). It returns false if the
// user already has a different, or the same, analysis in flight.
func (r *Registry) TryAcquire(userID, url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[userID]; busy {
		return false
	}
	r.inFlight[userID] = url
	return true
}

// Release frees the lock. Safe to call even if the lock was never held.
func (r *Registry) Release(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, userID)
}

// InFlight reports the URL currently locked for userID, if any.
func (r *Registry) InFlight(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	url, ok := r.inFlight[userID]
	return url, ok
}
