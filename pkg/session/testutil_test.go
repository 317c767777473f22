package session

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/pkg/datachannel"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
	"github.com/m4mm0n/amFTPd-sub003/pkg/vfs"
)

// newTestSession builds a Session wired to an in-memory resolver rooted
// at a fresh temp directory, backed by a net.Pipe control connection
// whose client half the caller drives directly.
func newTestSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	root := t.TempDir()

	table := vfs.NewMountTable([]vfs.Mount{{VirtualRoot: "/", PhysicalRoot: root}})
	resolver := vfs.NewResolver([]vfs.Provider{&vfs.PhysicalProvider{Mounts: table}}, time.Second)

	store := identity.NewMemoryStore()
	store.PutSection(&identity.Section{Name: "APPS", VirtualRoot: "/APPS", UploadMultiplier: 1, DownloadMultiplier: 1})

	alloc, err := datachannel.NewAllocator(datachannel.PortRange{Low: 32100, High: 32199}, net.ParseIP("127.0.0.1"))
	if err != nil {
		t.Fatalf("NewAllocator: %v", err)
	}

	cfg := Config{
		Stores:           store,
		Resolver:         resolver,
		PassiveAllocator: alloc,
		PassiveBindIP:    net.ParseIP("127.0.0.1"),
		DataDialTimeout:  2 * time.Second,
	}
	// The net.Pipe control connection used in tests has no real network
	// address, so the control/data peer comparison in openDataChannel
	// always looks like a cross-host transfer. Enable FXP globally; with
	// the per-user FXP policy left at its zero value (evaluation
	// disabled), that path falls through to an unconditional allow
	// instead of the zero-value "FXP disabled globally" deny.
	cfg.FXPGlobal.Enabled = true

	serverConn, clientConn := net.Pipe()
	s := New(context.Background(), serverConn, cfg)
	t.Cleanup(func() { s.Close() })
	return s, clientConn
}

func mustMkdir(t *testing.T, base, name string) {
	t.Helper()
	if err := os.Mkdir(base+"/"+name, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
}
