package listener

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/pkg/datachannel"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
	"github.com/m4mm0n/amFTPd-sub003/pkg/session"
	"github.com/m4mm0n/amFTPd-sub003/pkg/vfs"
)

func newTestConfig(t *testing.T) session.Config {
	t.Helper()
	root := t.TempDir()
	table := vfs.NewMountTable([]vfs.Mount{{VirtualRoot: "/", PhysicalRoot: root}})
	resolver := vfs.NewResolver([]vfs.Provider{&vfs.PhysicalProvider{Mounts: table}}, time.Second)
	store := identity.NewMemoryStore()

	alloc, err := datachannel.NewAllocator(datachannel.PortRange{Low: 32200, High: 32299}, net.ParseIP("127.0.0.1"))
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	cfg := session.Config{
		Stores:           store,
		Resolver:         resolver,
		PassiveAllocator: alloc,
		PassiveBindIP:    net.ParseIP("127.0.0.1"),
		DataDialTimeout:  2 * time.Second,
	}
	cfg.FXPGlobal.Enabled = true
	return cfg
}

func startServer(t *testing.T, cfg Config) (*Server, context.CancelFunc) {
	t.Helper()
	cfg.BindAddr = "127.0.0.1:0"
	srv := NewServer(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	go func() { _ = srv.Serve(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := srv.WaitListening(waitCtx); err != nil {
		t.Fatalf("server did not start listening in time: %v", err)
	}
	return srv, cancel
}

func TestServerAcceptsAndGreets(t *testing.T) {
	srv, cancel := startServer(t, Config{Session: newTestConfig(t)})
	defer cancel()

	conn, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if !strings.HasPrefix(line, "220") {
		t.Fatalf("expected 220 greeting, got %q", line)
	}

	if srv.cfg.Registry.count() != 1 {
		t.Fatalf("expected 1 registered session, got %d", srv.cfg.Registry.count())
	}
}

func TestServerRejectsBannedAddress(t *testing.T) {
	bans := NewBanList()
	bans.BanIP(net.ParseIP("127.0.0.1"), "test", 0)
	srv, cancel := startServer(t, Config{Session: newTestConfig(t), Bans: bans})
	defer cancel()

	conn, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	if n != 0 || err == nil {
		t.Fatalf("expected immediate close for banned address, got n=%d err=%v", n, err)
	}
}

func TestServerEnforcesMaxConnsPerIP(t *testing.T) {
	srv, cancel := startServer(t, Config{Session: newTestConfig(t), MaxConnsPerIP: 1})
	defer cancel()

	first, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close()
	first.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := bufio.NewReader(first).ReadString('\n'); err != nil {
		t.Fatalf("read first greeting: %v", err)
	}

	second, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()
	second.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 16)
	n, err := second.Read(buf)
	if n != 0 || err == nil {
		t.Fatalf("expected second connection over the per-IP cap to be closed, got n=%d err=%v", n, err)
	}
}

func TestServerShutdownDrainsSessions(t *testing.T) {
	srv, cancel := startServer(t, Config{Session: newTestConfig(t), ShutdownGrace: time.Second})
	defer cancel()

	conn, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := bufio.NewReader(conn).ReadString('\n'); err != nil {
		t.Fatalf("read greeting: %v", err)
	}

	done := make(chan struct{})
	go func() {
		srv.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Shutdown did not return in time")
	}

	if srv.cfg.Registry.count() != 0 {
		t.Fatalf("expected all sessions deregistered after shutdown, got %d", srv.cfg.Registry.count())
	}
}
