// registry.go — Registry: the process-wide, mutex-guarded session map,
// grounded on the teacher's SessionManager map-plus-order idiom
// (internal/session/sessions.go).
package session

import (
	"sync"

	"github.com/f1telemetry/replay-engine/internal/types"
)

// Registry is the single process-wide set of known sessions, keyed by
// SessionKey. The lock is held only across the lookup-or-insert, never
// across a load itself.
type Registry struct {
	mu       sync.Mutex
	sessions map[types.SessionKey]*Session
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[types.SessionKey]*Session)}
}

// GetOrCreate returns the existing Session for key, or creates and
// stores a new one in state INIT. created reports whether a new Session
// was constructed by this call.
func (r *Registry) GetOrCreate(key types.SessionKey) (sess *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[key]; ok {
		return existing, false
	}
	sess = NewSession(key)
	r.sessions[key] = sess
	return sess, true
}

// Get looks up an existing session without creating one.
func (r *Registry) Get(key types.SessionKey) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Evict removes a session from the registry (e.g. on explicit refresh
// request), forcing the next GetOrCreate to start a fresh load.
func (r *Registry) Evict(key types.SessionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

// Len reports the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
