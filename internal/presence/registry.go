// Package presence tracks how many live connections each user holds.
// A user is online while at least one connection is registered; multiple
// tabs or devices stack, and only the last disconnect flips the user
// back offline.
package presence

import "sync"

type Registry struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewRegistry() *Registry {
	return &Registry{counts: make(map[string]int)}
}

// Connect records a new connection for userID and reports whether this
// is the user's first live connection (the offline -> online edge).
func (r *Registry) Connect(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[userID]++
	return r.counts[userID] == 1
}

// Disconnect records a closed connection for userID and reports whether
// the user now has no connections left (the online -> offline edge).
// Disconnecting an unknown user is a no-op.
func (r *Registry) Disconnect(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.counts[userID]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(r.counts, userID)
		return true
	}
	r.counts[userID] = n - 1
	return false
}

// Online reports whether userID has at least one live connection.
func (r *Registry) Online(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[userID] > 0
}

// Count returns the number of live connections for userID.
func (r *Registry) Count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[userID]
}
