package session

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/pkg/abuse"
	"github.com/m4mm0n/amFTPd-sub003/pkg/events"
	"github.com/m4mm0n/amFTPd-sub003/pkg/ident"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

func cmdUSER(s *Session, args string) {
	username := strings.TrimSpace(args)
	if username == "" {
		s.reply.Send(501, "USER requires a username.")
		return
	}
	s.username = username
	s.user = nil
	s.state = StateAwaitPass
	s.reply.Send(331, "Password required for "+username+".")
}

func cmdPASS(s *Session, args string) {
	if s.state != StateAwaitPass {
		s.reply.Send(503, "Login with USER first.")
		return
	}

	peer := s.peerIP()
	if s.cfg.AbuseLimiter != nil && peer != nil {
		if banned, _ := s.cfg.AbuseLimiter.IsBanned(peer.String()); banned {
			s.reply.Send(530, "Too many failures; try again later.")
			s.state = StateClosing
			return
		}
	}

	user, err := s.cfg.Stores.ValidateCredentials(s.username, args)
	if err != nil {
		s.failLogin(peer)
		return
	}

	if user.MaxConcurrentLogins > 0 && s.cfg.Registry != nil {
		if s.cfg.Registry.CountByUser(user.Username) >= user.MaxConcurrentLogins {
			s.reply.Send(530, "Too many concurrent logins for this account.")
			return
		}
	}

	if peer != nil && !user.MatchesIPMask(peer) {
		s.reply.Send(530, "Login not allowed from this address.")
		return
	}

	if user.Ident.RequireMatch && peer != nil {
		if !s.verifyIdent(user, peer) {
			s.reply.Send(530, "IDENT verification failed.")
			return
		}
	}

	s.user = user
	s.loginAt = time.Now()
	s.state = StateAuthenticated
	s.reply.Send(230, "Login successful.")
	if s.cfg.Events != nil {
		s.cfg.Events.Publish(events.Event{Kind: events.Login, Username: user.Username})
	}
}

func (s *Session) failLogin(peer net.IP) {
	s.reply.Send(530, "Login incorrect.")
	if s.cfg.Events != nil {
		s.cfg.Events.LoginFailed()
		s.cfg.Events.Publish(events.Event{Kind: events.LoginFailed, Username: s.username})
	}
	if s.cfg.AbuseLimiter != nil && peer != nil {
		decision := s.cfg.AbuseLimiter.RecordFailedLogin(peer.String())
		if decision.Action == abuse.Ban {
			s.reply.Send(421, "Too many failed logins; closing connection.")
			s.state = StateClosing
		}
	}
}

// verifyIdent runs the RFC 1413 lookup (cached, if configured) against
// the control connection's peer and applies the user's ident policy.
func (s *Session) verifyIdent(user *identity.User, peer net.IP) bool {
	_, remotePortStr, _ := net.SplitHostPort(s.conn.RemoteAddr().String())
	_, localPortStr, _ := net.SplitHostPort(s.conn.LocalAddr().String())
	remotePort, _ := strconv.Atoi(remotePortStr)
	localPort, _ := strconv.Atoi(localPortStr)

	timeout := s.cfg.IdentTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	lookup := func() (*ident.Result, error) {
		return ident.Lookup(s.ctx, peer.String(), remotePort, localPort, timeout)
	}

	var result *ident.Result
	var err error
	if s.cfg.IdentCache != nil {
		result, err = ident.LookupCached(s.cfg.IdentCache, true, peer.String(), lookup)
	} else {
		result, err = lookup()
	}

	policy := s.cfg.IdentPolicy
	policy.StrictUserMatch = true
	policy.DenyOnStrictMismatch = true

	expected := s.username
	if user.Ident.RequiredIdent != "" {
		expected = user.Ident.RequiredIdent
	}

	tlsCommonName := s.controlTLSCommonName()
	var ptrLabel string
	if policy.ReverseDNSCheck {
		ptrLabel = ident.ReverseDNSLabel(peer)
	}

	outcome := ident.Apply(policy, result, err, expected, tlsCommonName, ptrLabel)
	return !outcome.Denied
}

func cmdAUTH(s *Session, args string) {
	mech := strings.ToUpper(strings.TrimSpace(args))
	if mech != "TLS" && mech != "SSL" {
		s.reply.Send(504, "Unsupported AUTH mechanism.")
		return
	}
	s.reply.Send(234, "Using authentication type "+mech+".")
	if err := s.upgradeTLS(); err != nil {
		s.state = StateClosing
	}
}

func cmdPBSZ(s *Session, args string) {
	if !s.controlTLSActive() {
		s.reply.Send(503, "PBSZ requires TLS.")
		return
	}
	if _, err := strconv.Atoi(strings.TrimSpace(args)); err != nil {
		s.reply.Send(501, "PBSZ requires a numeric argument.")
		return
	}
	s.pbszSeen = true
	s.reply.Send(200, "PBSZ=0")
}

func cmdPROT(s *Session, args string) {
	if !s.pbszSeen {
		s.reply.Send(503, "PBSZ required before PROT.")
		return
	}
	switch strings.ToUpper(strings.TrimSpace(args)) {
	case "P":
		if !s.controlTLSActive() {
			s.reply.Send(503, "PROT P requires TLS on the control channel.")
			return
		}
		s.protected = true
		s.reply.Send(200, "PROT P ok.")
	case "C":
		s.protected = false
		s.reply.Send(200, "PROT C ok.")
	default:
		s.reply.Send(504, "Unsupported PROT level.")
	}
}
