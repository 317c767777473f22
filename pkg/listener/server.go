// Package listener implements the control-connection accept loop: ban
// enforcement on accept, session instantiation and registration, and
// coordinated graceful shutdown.
package listener

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/internal/logger"
	"github.com/m4mm0n/amFTPd-sub003/pkg/session"
)

// Config holds everything the listener needs to accept and run
// sessions.
type Config struct {
	// BindAddr is the address to listen on, e.g. ":21" or "0.0.0.0:2121".
	BindAddr string

	// Session is the shared, read-only collaborator bundle handed to
	// every accepted session. Its Registry field is overwritten with
	// this listener's own *Registry so sessions and the listener agree
	// on the same active-session set.
	Session session.Config

	Bans     *BanList
	Registry *Registry

	// MaxConnsPerIP caps simultaneous connections from one address.
	// Zero means unlimited.
	MaxConnsPerIP int

	// ShutdownGrace bounds how long Shutdown waits for sessions to
	// drain on their own before force-closing the stragglers.
	ShutdownGrace time.Duration
}

// Server accepts control connections and drives sessions to
// completion. One Server owns one bind address.
type Server struct {
	cfg      Config
	listener net.Listener

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	ready     chan struct{}
	readyOnce sync.Once

	connsMu   sync.Mutex
	connsByIP map[string]int
}

// NewServer builds a Server from cfg. It does not start listening;
// call Serve for that.
func NewServer(cfg Config) *Server {
	if cfg.Bans == nil {
		cfg.Bans = NewBanList()
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	cfg.Session.Registry = cfg.Registry
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	return &Server{
		cfg:       cfg,
		shutdown:  make(chan struct{}),
		ready:     make(chan struct{}),
		connsByIP: make(map[string]int),
	}
}

// Serve starts accepting connections on cfg.BindAddr. It blocks until
// the context is cancelled or Shutdown is called, then returns once
// every session has drained or been force-closed.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.BindAddr, err)
	}
	s.listener = ln
	s.readyOnce.Do(func() { close(s.ready) })

	logger.Info("listener started", "address", ln.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.shutdown:
		}
	}()

	s.wg.Add(1)
	s.acceptLoop(ctx)
	s.wg.Done()

	s.wg.Wait()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				logger.Warn("accept error", "error", err)
				return
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	ip := net.ParseIP(host)

	if ip != nil && s.cfg.Bans != nil {
		if banned, reason := s.cfg.Bans.IsBanned(ip); banned {
			logger.Info("rejected banned address", "remote", host, "reason", reason)
			_ = conn.Close()
			return
		}
	}

	if s.cfg.MaxConnsPerIP > 0 && host != "" {
		s.connsMu.Lock()
		if s.connsByIP[host] >= s.cfg.MaxConnsPerIP {
			s.connsMu.Unlock()
			logger.Info("rejected connection over per-IP cap", "remote", host)
			_ = conn.Close()
			return
		}
		s.connsByIP[host]++
		s.connsMu.Unlock()
		defer func() {
			s.connsMu.Lock()
			s.connsByIP[host]--
			if s.connsByIP[host] <= 0 {
				delete(s.connsByIP, host)
			}
			s.connsMu.Unlock()
		}()
	}

	sess := session.New(ctx, conn, s.cfg.Session)
	var id uint64
	if s.cfg.Registry != nil {
		id = s.cfg.Registry.register(sess, sess.Close)
		defer s.cfg.Registry.deregister(id)
	}
	sess.Run()
}

// Shutdown stops accepting new connections and waits up to the
// configured grace period for active sessions to exit on their own
// before force-closing whatever is left (closing a session trips its
// cancellation signal and closes its connection), then waits up to one
// more grace period for the force-closed sessions to deregister.
// Shutdown does not cancel sessions before the grace period ends;
// sessions see cancellation earlier only when the context passed to
// Serve is cancelled.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})

	if s.cfg.Registry == nil {
		return
	}

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(s.cfg.ShutdownGrace):
		logger.Warn("shutdown grace period elapsed, force-closing stragglers",
			"remaining", s.cfg.Registry.count())
		s.cfg.Registry.closeAll()
		select {
		case <-drained:
		case <-time.After(s.cfg.ShutdownGrace):
		}
	}
}

// Addr returns the bound listener address, or the empty string before
// Serve starts listening. Used by tests and by operators checking the
// resolved port when BindAddr ends in ":0".
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// WaitListening blocks until Serve has successfully bound its
// listener, or ctx is done first.
func (s *Server) WaitListening(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
