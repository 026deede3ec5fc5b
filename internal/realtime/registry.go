package realtime

import (
	"errors"
	"fmt"
)

// ErrDuplicateSession is returned when a session id is registered twice.
var ErrDuplicateSession = errors.New("realtime: duplicate session id")

// Registry maps session id -> Session.
// It is not safe for concurrent use; the Hub confines it to its event loop.
type Registry struct {
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register inserts s keyed by its id.
func (r *Registry) Register(s *Session) error {
	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSession, s.ID)
	}
	r.sessions[s.ID] = s
	return nil
}

// Unregister removes id and reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Get returns the session for id. A miss means the session already left.
func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// ForEach calls visit for every session present when the call started.
// Register/Unregister from inside visit do not affect the iteration.
func (r *Registry) ForEach(visit func(*Session)) {
	for _, s := range r.Snapshot() {
		visit(s)
	}
}

// Snapshot copies the current session handles.
func (r *Registry) Snapshot() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Size returns the number of registered sessions.
func (r *Registry) Size() int {
	return len(r.sessions)
}
