package relay

import (
	"sync"

	"github.com/google/uuid"

	"github.com/voxstudio/voxrelay/internal/observability"
)

// Registry tracks live sessions by id so HTTP handlers can find them after
// the websocket handshake is gone.
type Registry struct {
	metrics *observability.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(metrics *observability.Metrics) *Registry {
	return &Registry{
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Create builds an idle session under a fresh id and tracks it.
func (r *Registry) Create(opts Options, events Events) *Session {
	sess := NewSession(uuid.NewString(), opts, events)

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveSessions.Inc()
	}
	return sess
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Remove forgets a session. Returns false when the id was already gone, so
// double teardown never skews the gauge.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok && r.metrics != nil {
		r.metrics.ActiveSessions.Dec()
	}
	return ok
}

// Len reports the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
