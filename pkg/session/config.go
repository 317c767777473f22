package session

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/pkg/abuse"
	"github.com/m4mm0n/amFTPd-sub003/pkg/datachannel"
	"github.com/m4mm0n/amFTPd-sub003/pkg/events"
	"github.com/m4mm0n/amFTPd-sub003/pkg/fxp"
	"github.com/m4mm0n/amFTPd-sub003/pkg/ident"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
	"github.com/m4mm0n/amFTPd-sub003/pkg/registry"
	"github.com/m4mm0n/amFTPd-sub003/pkg/script"
	"github.com/m4mm0n/amFTPd-sub003/pkg/site"
	"github.com/m4mm0n/amFTPd-sub003/pkg/vfs"
)

// WhoInfo is one entry in a session registry's snapshot, used by SITE
// WHO (pkg/site.WhoLister) and the runtime status-snapshot accessor.
type WhoInfo struct {
	Username string
	Section  string
	Idle     time.Duration
}

// Registry is the subset of pkg/listener's active-session registry a
// Session needs for SITE WHO and concurrent-login enforcement. Defined
// here (consumer side) rather than imported from pkg/listener, since
// pkg/listener owns Session instances and importing it back would
// cycle.
type Registry interface {
	Snapshot() []WhoInfo
	CountByUser(username string) int
}

// Config bundles every collaborator a Session needs, assembled once at
// startup (by internal/config and cmd/amftpd) and shared read-only
// across all sessions.
type Config struct {
	Stores   identity.Store
	Resolver *vfs.Resolver
	Releases *registry.ReleaseRegistry
	Registry Registry

	PassiveAllocator *datachannel.Allocator
	PassiveBindIP    net.IP

	TLSConfig *tls.Config

	IdentTimeout time.Duration
	IdentCache   *ident.Cache
	IdentPolicy  ident.Policy

	FXPPolicy   fxp.Policy
	FXPGlobal   fxp.GlobalPolicy

	AbuseLimiter *abuse.Limiter

	Events *events.Recorder
	Site   *site.Registry
	Script *script.Holder

	IdleTimeout        time.Duration
	ControlReadTimeout time.Duration
	DataDialTimeout    time.Duration
	TLSHandshakeTimeout time.Duration

	ServerName string
}
