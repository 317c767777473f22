package datachannel

import (
	"fmt"
	"net"
	"sync"
)

// PortRange bounds the passive-port allocator. Both ends are inclusive.
type PortRange struct {
	Low, High int
}

func (r PortRange) valid() bool {
	return r.Low > 0 && r.High >= r.Low && r.High <= 65535
}

// PassiveListener owns a single listening socket opened for one PASV/EPSV
// command. The session stores at most one of these at a time; opening a
// new one replaces and closes whatever was pending.
type PassiveListener struct {
	ln   net.Listener
	port int
}

// Port returns the port the socket is bound to.
func (p *PassiveListener) Port() int { return p.port }

// Accept blocks for a single inbound connection and then closes the
// listening socket; PASV sockets are single-use.
func (p *PassiveListener) Accept() (net.Conn, error) {
	defer p.ln.Close()
	return p.ln.Accept()
}

// Close closes the listening socket without accepting, used when a
// pending passive socket is discarded unused.
func (p *PassiveListener) Close() error {
	return p.ln.Close()
}

// Allocator opens passive listeners on ports drawn from a configured
// range, retrying past ports already in use by something else on the host.
type Allocator struct {
	mu     sync.Mutex
	rng    PortRange
	bindIP net.IP
	next   int
}

// NewAllocator builds an Allocator that binds listeners to bindIP (use
// nil for all interfaces) on ports within rng.
func NewAllocator(rng PortRange, bindIP net.IP) (*Allocator, error) {
	if !rng.valid() {
		return nil, fmt.Errorf("datachannel: invalid passive port range %d-%d", rng.Low, rng.High)
	}
	return &Allocator{rng: rng, bindIP: bindIP, next: rng.Low}, nil
}

// Open opens a new passive listener, scanning the configured range
// starting just after the last successful allocation so repeated PASV
// calls spread across the range instead of hammering the same port.
func (a *Allocator) Open() (*PassiveListener, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	span := a.rng.High - a.rng.Low + 1
	var lastErr error
	for i := 0; i < span; i++ {
		port := a.rng.Low + (a.next-a.rng.Low+i)%span
		addr := &net.TCPAddr{IP: a.bindIP, Port: port}
		ln, err := net.ListenTCP("tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		a.next = port + 1
		return &PassiveListener{ln: ln, port: port}, nil
	}
	return nil, fmt.Errorf("datachannel: no free port in range %d-%d: %w", a.rng.Low, a.rng.High, lastErr)
}
