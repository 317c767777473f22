package listener

import (
	"strings"
	"sync"

	"github.com/m4mm0n/amFTPd-sub003/pkg/session"
)

// sessionHandle is the concrete value stored per connection; it
// couples the real *session.Session with the bookkeeping the registry
// needs to deregister and force-close it on shutdown.
type sessionHandle struct {
	sess    *session.Session
	closeFn func()
}

// Registry tracks every live session so the listener can answer SITE
// WHO, enforce per-user concurrent-login caps, and drive graceful
// shutdown. It implements session.Registry.
type Registry struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]*sessionHandle
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[uint64]*sessionHandle)}
}

// register adds a session and returns a handle used to deregister it
// later. Called once per accepted connection.
func (r *Registry) register(sess *session.Session, closeFn func()) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.entries[id] = &sessionHandle{sess: sess, closeFn: closeFn}
	return id
}

// deregister removes a session by the ID register returned.
func (r *Registry) deregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Snapshot returns a WhoInfo for every currently tracked session, for
// SITE WHO.
func (r *Registry) Snapshot() []session.WhoInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.WhoInfo, 0, len(r.entries))
	for _, h := range r.entries {
		out = append(out, session.WhoInfo{
			Username: h.sess.Username(),
			Section:  h.sess.CurrentSection(),
			Idle:     h.sess.IdleDuration(),
		})
	}
	return out
}

// CountByUser reports how many sessions are currently logged in as
// username, case-insensitively, for concurrent-login enforcement.
func (r *Registry) CountByUser(username string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, h := range r.entries {
		if strings.EqualFold(h.sess.Username(), username) {
			n++
		}
	}
	return n
}

// closeAll force-closes every tracked session, used as the last step
// of a graceful shutdown once the grace period has elapsed.
func (r *Registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.entries {
		h.closeFn()
	}
}

// count returns the number of currently tracked sessions.
func (r *Registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
