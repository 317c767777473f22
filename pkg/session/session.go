package session

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/internal/logger"
	"github.com/m4mm0n/amFTPd-sub003/pkg/datachannel"
	"github.com/m4mm0n/amFTPd-sub003/pkg/events"
	"github.com/m4mm0n/amFTPd-sub003/pkg/ftperr"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

// Session owns one control connection for its entire lifetime. Commands
// within a session are processed strictly sequentially on the goroutine
// that calls Run.
type Session struct {
	cfg Config

	conn   net.Conn
	reader *bufio.Reader
	reply  *replyWriter

	ctx    context.Context
	cancel context.CancelFunc

	state    State
	tlsState TLSState

	username string
	user     *identity.User

	cwd        string
	typeCode   byte // 'A' ASCII or 'I' image/binary
	restOffset int64
	renameFrom string
	protected  bool // PROT P in effect for the data channel
	pbszSeen   bool

	pending      *datachannel.PassiveListener
	activeTarget *datachannel.Endpoint

	mu             sync.Mutex
	uploadedB      int64
	downloadedB    int64
	loginAt        time.Time
	lastActivity   time.Time
	dataCancel     context.CancelFunc
	abortRequested bool

	// pendingLine holds a command line the ABOR watcher read off the
	// control connection during a transfer but that turned out not to be
	// ABOR; Run replays it before blocking on a fresh read.
	pendingLine    string
	hasPendingLine bool
}

// New builds a Session over an already-accepted connection. Call Run to
// drive its command loop; Run blocks until the session closes.
func New(parent context.Context, conn net.Conn, cfg Config) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		cfg:          cfg,
		conn:         conn,
		reader:       bufio.NewReader(conn),
		reply:        newReplyWriter(bufio.NewWriter(conn)),
		ctx:          ctx,
		cancel:       cancel,
		state:        StateGreeting,
		cwd:          "/",
		typeCode:     'A',
		lastActivity: time.Now(),
	}
	return s
}

// Context returns the session's cancellation context, tripped by
// Close, QUIT, a protocol error, or a policy abort.
func (s *Session) Context() context.Context { return s.ctx }

// Close trips the session's cancellation signal and closes the
// underlying connection. Safe to call more than once.
func (s *Session) Close() {
	s.cancel()
	s.conn.Close()
}

// Run sends the greeting and then loops reading and dispatching
// commands until the session closes. It never returns an error the
// caller must act on: all failures end the loop and close the
// connection.
func (s *Session) Run() {
	defer s.teardown()

	if s.cfg.Events != nil {
		s.cfg.Events.ConnectionOpened()
	}
	s.reply.Send(220, fmt.Sprintf("%s ready.", s.serverName()))
	s.state = StateUnauthUser

	for s.state != StateClosing {
		line, ok := s.takePendingLine()
		if !ok {
			var err error
			line, err = s.readCommandLine()
			if err != nil {
				return
			}
		}
		s.mu.Lock()
		s.lastActivity = time.Now()
		s.mu.Unlock()
		verb, args := parseCommand(line)
		if verb == "" {
			continue
		}
		s.dispatch(verb, args)
		if s.cfg.Events != nil {
			s.cfg.Events.CommandProcessed()
		}
	}
}

// IdleDuration reports how long it has been since the last command was
// read on this session, for SITE WHO and registry snapshots.
func (s *Session) IdleDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

func (s *Session) serverName() string {
	if s.cfg.ServerName != "" {
		return s.cfg.ServerName
	}
	return "amFTPd"
}

func (s *Session) teardown() {
	s.cancel()
	s.conn.Close()
	if s.cfg.Events != nil {
		s.cfg.Events.ConnectionClosed()
		s.cfg.Events.Publish(events.Event{Kind: events.Logout, Username: s.username})
	}
}

// readCommandLine reads one CRLF-terminated line, applying the idle
// timeout as a deadline on the read.
func (s *Session) readCommandLine() (string, error) {
	line, timedOut, err := s.readRawLine()
	if err != nil {
		if timedOut {
			s.reply.Send(421, "Idle timeout; closing connection.")
		}
		s.state = StateClosing
		return "", err
	}
	return line, nil
}

// readRawLine reads one CRLF-terminated line off the control
// connection, applying the idle timeout as a read deadline. It performs
// no session-state side effects, so it's also safe to call from the
// ABOR watcher goroutine started during a blocking transfer, as long as
// that goroutine and the main loop never read concurrently (watchAbort
// and its stop func enforce that).
func (s *Session) readRawLine() (line string, timedOut bool, err error) {
	timeout := s.cfg.IdleTimeout
	if s.user != nil && s.user.IdleTimeout > 0 {
		timeout = s.user.IdleTimeout
	}
	if timeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(timeout))
	}

	raw, err := s.reader.ReadString('\n')
	if err != nil {
		if e, ok := err.(net.Error); ok && e.Timeout() {
			return "", true, err
		}
		if err != io.EOF {
			logger.Debug("session read error", "remote", s.conn.RemoteAddr(), "error", err)
		}
		return "", false, err
	}
	return strings.TrimRight(raw, "\r\n"), false, nil
}

// takePendingLine returns and clears a line stashed by the ABOR watcher,
// if one is waiting.
func (s *Session) takePendingLine() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPendingLine {
		return "", false
	}
	line := s.pendingLine
	s.pendingLine = ""
	s.hasPendingLine = false
	return line, true
}

func (s *Session) stashPendingLine(line string) {
	s.mu.Lock()
	s.pendingLine = line
	s.hasPendingLine = true
	s.mu.Unlock()
}

// watchAbort reads one line off the control connection on its own
// goroutine while a transfer blocks the main loop inside dispatch,
// triggering cancel out-of-band the instant it sees ABOR. This is what
// lets a transfer respond to ABOR at all: a purely sequential
// read-then-dispatch loop can't observe a second command until the
// first one's handler returns.
//
// The returned stop func must be called, from the same goroutine that
// started the transfer, once the transfer ends on its own; it forces
// the watcher's pending read to expire and waits for the goroutine to
// exit before returning, so the main loop never resumes reading
// concurrently with the watcher. If the watcher read a line that wasn't
// ABOR, stop returns it so the caller can stash it for replay.
func (s *Session) watchAbort(cancel context.CancelFunc) (stop func() (leftover string, ok bool)) {
	done := make(chan struct{})
	var leftover string
	var gotLine bool
	go func() {
		defer close(done)
		line, _, err := s.readRawLine()
		if err != nil {
			return
		}
		verb, _ := parseCommand(line)
		if verb == "ABOR" {
			s.mu.Lock()
			s.abortRequested = true
			s.mu.Unlock()
			cancel()
			return
		}
		leftover, gotLine = line, true
	}()
	return func() (string, bool) {
		s.conn.SetReadDeadline(time.Now())
		<-done
		return leftover, gotLine
	}
}

// consumeAbortRequested reports whether the transfer just finished was
// interrupted by watchAbort seeing an ABOR, clearing the flag for the
// next transfer.
func (s *Session) consumeAbortRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	aborted := s.abortRequested
	s.abortRequested = false
	return aborted
}

// parseCommand splits "VERB rest" preserving the argument's internal
// whitespace.
func parseCommand(line string) (verb, args string) {
	line = strings.TrimLeft(line, " \t")
	verb, args, found := strings.Cut(line, " ")
	if !found {
		return strings.ToUpper(verb), ""
	}
	return strings.ToUpper(verb), args
}

func (s *Session) dispatch(verb, args string) {
	if s.state != StateAuthenticated && s.state != StateDataPending && !unauthWhitelist[verb] {
		s.reply.Send(530, "Please login with USER and PASS.")
		return
	}

	if s.cfg.Script != nil {
		if d := s.cfg.Script.Current().EvaluateCommand(s.ctx, s.username, verb, args); !d.Allow {
			reason := d.Reason
			if reason == "" {
				reason = "denied by policy"
			}
			s.reply.Send(550, reason)
			return
		}
	}

	h, ok := commandTable[verb]
	if !ok {
		s.reply.Send(502, "Command not implemented.")
		return
	}
	h(s, args)
}

// upgradeTLS performs the server-side TLS handshake on the control
// connection for AUTH TLS.
func (s *Session) upgradeTLS() error {
	if s.cfg.TLSConfig == nil {
		return fmt.Errorf("session: no TLS configuration available")
	}
	s.tlsState = TLSNegotiating
	tconn := tls.Server(s.conn, s.cfg.TLSConfig)

	ctx := s.ctx
	if s.cfg.TLSHandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, s.cfg.TLSHandshakeTimeout)
		defer cancel()
	}
	if err := tconn.HandshakeContext(ctx); err != nil {
		s.tlsState = TLSPlain
		return err
	}
	s.conn = tconn
	s.reader = bufio.NewReader(tconn)
	s.reply = newReplyWriter(bufio.NewWriter(tconn))
	s.tlsState = TLSActive
	return nil
}

func (s *Session) controlTLSActive() bool {
	return s.tlsState == TLSActive
}

func (s *Session) controlTLSVersion() uint16 {
	if tconn, ok := s.conn.(*tls.Conn); ok {
		return tconn.ConnectionState().Version
	}
	return 0
}

// controlTLSCommonName returns the Subject common name of the control
// connection's negotiated client certificate, or "" if TLS is inactive
// or the client presented no certificate.
func (s *Session) controlTLSCommonName() string {
	tconn, ok := s.conn.(*tls.Conn)
	if !ok {
		return ""
	}
	peers := tconn.ConnectionState().PeerCertificates
	if len(peers) == 0 {
		return ""
	}
	return peers[0].Subject.CommonName
}

func (s *Session) peerIP() net.IP {
	host, _, err := net.SplitHostPort(s.conn.RemoteAddr().String())
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}

// writeResult writes an *ftperr.Result as the appropriate reply, closing
// the session if the result demands it.
func (s *Session) writeResult(r *ftperr.Result) {
	s.reply.Send(r.Code, r.Message)
	if r.CloseSession {
		s.state = StateClosing
	}
}
