// sessions.go — matches an incoming bridge connection's handshake
// UUID to the route/handle hosts a Run already prepared for it, and
// forwards that connection's eventual Done signal back to Run. A
// registry rather than a single slot because watch mode (spec §4.7
// step 7) tears down and reopens connections across rebuilds, each
// with a fresh session UUID.
package runner

import (
	"context"
	"sync"

	"github.com/wrightplay/wrightplay/internal/bridge"
	handlehost "github.com/wrightplay/wrightplay/internal/handle/host"
	routehost "github.com/wrightplay/wrightplay/internal/route/host"
)

type sessionEntry struct {
	route   *routehost.Host
	handles *handlehost.Dispatcher
	doneCh  chan clientDone
}

type sessionRegistry struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	// epoch counts successful handshakes. Nothing reads it: a Done from
	// any connection matched to a registered session is delivered.
	epoch int
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{entries: map[string]*sessionEntry{}}
}

// register prepares a slot for sessionUUID before the browser has
// connected, so onConn has somewhere to attach the live connection.
func (r *sessionRegistry) register(sessionUUID string, rh *routehost.Host, handles *handlehost.Dispatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[sessionUUID] = &sessionEntry{route: rh, handles: handles, doneCh: make(chan clientDone, 1)}
}

func (r *sessionRegistry) unregister(sessionUUID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionUUID)
}

// waitDone returns the channel a Done signal for sessionUUID arrives
// on, or nil if no such session was registered.
func (r *sessionRegistry) waitDone(sessionUUID string) <-chan clientDone {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionUUID]
	if !ok {
		return nil
	}
	return e.doneCh
}

// onConn is the bundle server's ConnHandler: it looks up the prepared
// hosts for the browser's handshake UUID and starts pumping frames.
func (r *sessionRegistry) onConn(conn *bridge.Conn, sessionUUID string) {
	r.mu.Lock()
	e, ok := r.entries[sessionUUID]
	if ok {
		r.epoch++
	}
	r.mu.Unlock()
	if !ok {
		sessionLog.WithField("session", sessionUUID).Warn("bridge connection for unknown session")
		_ = conn.Close()
		return
	}

	s := NewSession(conn, e.route, e.handles)
	s.doneCh = e.doneCh

	go func() {
		if err := s.Pump(context.Background()); err != nil {
			sessionLog.WithError(err).WithField("session", sessionUUID).Debug("session pump ended")
		}
	}()
}
