package session

import (
	"strings"
	"testing"

	"github.com/m4mm0n/amFTPd-sub003/pkg/abuse"
	"github.com/m4mm0n/amFTPd-sub003/pkg/events"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

func putTestUser(t *testing.T, s *Session, username, password string) *identity.User {
	t.Helper()
	salt, hash, err := identity.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &identity.User{
		Username:     username,
		PasswordSalt: salt,
		PasswordHash: hash,
		Enabled:      true,
		PrimaryGroup: "default",
	}
	if err := s.cfg.Stores.PutUser(u); err != nil {
		t.Fatalf("PutUser: %v", err)
	}
	return u
}

func TestLoginSuccessTransitionsToAuthenticated(t *testing.T) {
	s, client := newTestSession(t)
	putTestUser(t, s, "scene", "correcthorse")

	go func() {
		cmdUSER(s, "scene")
		cmdPASS(s, "correcthorse")
	}()

	expectReplyContains(t, client, "331")
	expectReplyContains(t, client, "230")
	if s.state != StateAuthenticated {
		t.Fatalf("expected StateAuthenticated, got %v", s.state)
	}
	if s.user == nil || s.user.Username != "scene" {
		t.Fatal("expected user to be set after successful login")
	}
}

func TestLoginWrongPasswordStaysUnauthenticated(t *testing.T) {
	s, client := newTestSession(t)
	putTestUser(t, s, "scene", "correcthorse")

	go func() {
		cmdUSER(s, "scene")
		cmdPASS(s, "wrong")
	}()

	expectReplyContains(t, client, "331")
	expectReplyContains(t, client, "530")
	if s.state == StateAuthenticated {
		t.Fatal("expected login to fail")
	}
}

func TestPASSWithoutUSERIsRejected(t *testing.T) {
	s, client := newTestSession(t)
	go cmdPASS(s, "whatever")
	expectReplyContains(t, client, "503")
}

func TestFailLoginPublishesEventAndCountsFailure(t *testing.T) {
	s, client := newTestSession(t)
	putTestUser(t, s, "scene", "correcthorse")
	s.cfg.Events = events.NewRecorder(events.New(), nil)

	go func() {
		cmdUSER(s, "scene")
		cmdPASS(s, "wrong")
	}()

	expectReplyContains(t, client, "331")
	expectReplyContains(t, client, "530")

	if got := s.cfg.Events.Stats.Snapshot().FailedLogins; got != 1 {
		t.Fatalf("expected 1 failed login recorded, got %d", got)
	}
}

func TestAbuseLimiterRepeatedFailuresEachRejected(t *testing.T) {
	s, client := newTestSession(t)
	putTestUser(t, s, "scene", "correcthorse")
	cfg := abuse.DefaultConfig()
	cfg.MaxFailedLoginsPerIP = 1
	s.cfg.AbuseLimiter = abuse.New(cfg)

	// net.Pipe has no parseable peer address, so failLogin's ban branch
	// (which keys off peerIP()) never fires here; this instead exercises
	// that repeated failures don't panic and each attempt is rejected.
	for i := 0; i < 3; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			cmdUSER(s, "scene")
			cmdPASS(s, "wrong")
		}()
		expectReplyContains(t, client, "331")
		reply := drainReply(t, client)
		if !strings.Contains(reply, "530") {
			t.Fatalf("attempt %d: expected 530, got %q", i, reply)
		}
		<-done
	}
}

func drainReply(t *testing.T, conn interface {
	Read([]byte) (int, error)
}) string {
	t.Helper()
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	return string(buf[:n])
}
