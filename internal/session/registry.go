package session

import "sync"

// Registry maps user ids to their live Session on this process.
// It holds liveness state only; nothing is persisted.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register stores sess and returns the session it replaced, if any.
// The caller is responsible for tearing the prior session down.
func (r *Registry) Register(userID string, sess *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prior := r.sessions[userID]
	r.sessions[userID] = sess
	return prior
}

// Get returns the session registered for userID
func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[userID]
	return sess, ok
}

// Remove deletes the entry for userID and returns it; absent ids are a no-op
func (r *Registry) Remove(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess := r.sessions[userID]
	delete(r.sessions, userID)
	return sess
}

// RemoveIf deletes the entry only while it still refers to sessionID
func (r *Registry) RemoveIf(userID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[userID]
	if !ok || sess.ID != sessionID {
		return false
	}
	delete(r.sessions, userID)
	return true
}

// Len returns the number of registered sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns a snapshot of all sessions
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}
