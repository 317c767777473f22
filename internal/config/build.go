package config

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/m4mm0n/amFTPd-sub003/pkg/abuse"
	"github.com/m4mm0n/amFTPd-sub003/pkg/certs"
	"github.com/m4mm0n/amFTPd-sub003/pkg/datachannel"
	"github.com/m4mm0n/amFTPd-sub003/pkg/dupe"
	"github.com/m4mm0n/amFTPd-sub003/pkg/events"
	"github.com/m4mm0n/amFTPd-sub003/pkg/fxp"
	"github.com/m4mm0n/amFTPd-sub003/pkg/ident"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
	"github.com/m4mm0n/amFTPd-sub003/pkg/listener"
	"github.com/m4mm0n/amFTPd-sub003/pkg/registry"
	"github.com/m4mm0n/amFTPd-sub003/pkg/script"
	"github.com/m4mm0n/amFTPd-sub003/pkg/session"
	"github.com/m4mm0n/amFTPd-sub003/pkg/site"
	"github.com/m4mm0n/amFTPd-sub003/pkg/vfs"
)

var tlsVersions = map[string]uint16{
	"1.0": tls.VersionTLS10,
	"1.1": tls.VersionTLS11,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// Runtime holds every long-lived collaborator Build assembled, plus the
// *listener.Server that ties them together. Callers close Runtime via
// its Shutdown method; the dupe store in particular must be
// closed to flush its open file handles.
type Runtime struct {
	Server *listener.Server

	Stores  *identity.MemoryStore
	Dupe    *dupe.Store
	Limiter *abuse.Limiter

	stopJanitor func()
}

// Shutdown stops accepting connections, drains sessions, stops the
// abuse janitor, and closes the dupe store, in that order.
func (r *Runtime) Shutdown() error {
	r.Server.Shutdown()
	if r.stopJanitor != nil {
		r.stopJanitor()
	}
	if r.Dupe != nil {
		return r.Dupe.Close()
	}
	return nil
}

// Build assembles a runnable Runtime from a loaded Config. It opens the
// dupe store, seeds the identity store from Config.Identity, builds the
// VFS provider chain, loads (or generates) the TLS certificate, and
// wires everything into a *listener.Server.
func Build(cfg *Config) (*Runtime, error) {
	stores, err := buildIdentityStore(&cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("config: build identity store: %w", err)
	}

	dupeStore, err := dupe.Open(cfg.Dupe.StoreDir)
	if err != nil {
		return nil, fmt.Errorf("config: open dupe store: %w", err)
	}
	releases := registry.NewReleaseRegistry(dupeStore)

	preRegistry, err := registry.LoadPreRegistry(cfg.Dupe.PreSnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("config: load pre registry: %w", err)
	}

	resolver := buildResolver(cfg, stores, releases, preRegistry)

	allocator, err := datachannel.NewAllocator(
		datachannel.PortRange{Low: cfg.Data.PassivePortLow, High: cfg.Data.PassivePortHigh},
		net.ParseIP(cfg.Data.PassiveBindIP),
	)
	if err != nil {
		return nil, fmt.Errorf("config: build passive allocator: %w", err)
	}

	var tlsConf *tls.Config
	if cfg.TLS.Enabled {
		tlsConf, err = buildTLSConfig(&cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("config: load TLS identity: %w", err)
		}
	}

	limiter := abuse.New(abuse.Config{
		FailedLoginWindow:      cfg.Abuse.FailedLoginWindow,
		MaxFailedLoginsPerIP:   cfg.Abuse.MaxFailedLoginsPerIP,
		FailedLoginBanDuration: cfg.Abuse.FailedLoginBanDuration,
		CommandWindow:          cfg.Abuse.CommandWindow,
		MaxCommandsPerMinute:   cfg.Abuse.MaxCommandsPerMinute,
		ThrottleDelay:          cfg.Abuse.ThrottleDelay,
		CommandBanDuration:     cfg.Abuse.CommandBanDuration,
		IdleEvictThreshold:     cfg.Abuse.IdleEvictThreshold,
	})
	var stopJanitor func()
	if cfg.Abuse.Enabled {
		stopJanitor = limiter.StartJanitor(cfg.Abuse.JanitorInterval)
	}

	bus := events.New()
	var metrics *events.Metrics
	if cfg.Metrics.Enabled {
		metrics = events.NewMetrics(nil)
	}
	recorder := events.NewRecorder(bus, metrics)

	sessionCfg := session.Config{
		Stores:   stores,
		Resolver: resolver,
		Releases: releases,

		PassiveAllocator: allocator,
		PassiveBindIP:    net.ParseIP(cfg.Data.PassiveBindIP),

		TLSConfig: tlsConf,

		IdentTimeout: cfg.Ident.Timeout,
		IdentCache:   ident.NewCache(cfg.Ident.CacheTTL),
		IdentPolicy: ident.Policy{
			StrictUserMatch: cfg.Ident.RequireForAll,
			LoggingOnly:     cfg.Ident.WarnOnly,

			TLSBinding:               cfg.Ident.TLSBinding,
			DenyOnTLSBindingMismatch: cfg.Ident.DenyOnTLSBindingMismatch,

			ReverseDNSCheck:          cfg.Ident.ReverseDNSCheck,
			DenyOnReverseDNSMismatch: cfg.Ident.DenyOnReverseDNSMismatch,
		},

		FXPPolicy: buildFXPPolicy(&cfg.FXP.DefaultPolicy),
		FXPGlobal: buildFXPGlobal(&cfg.FXP.Global),

		AbuseLimiter: limiter,

		Events: recorder,
		Site:   site.DefaultRegistry(),
		Script: script.NewHolder(),

		IdleTimeout:         cfg.Data.IdleTimeout,
		ControlReadTimeout:  cfg.Data.ControlReadTimeout,
		DataDialTimeout:     cfg.Data.DataDialTimeout,
		TLSHandshakeTimeout: cfg.Data.TLSHandshakeTimeout,

		ServerName: cfg.ServerName,
	}

	srv := listener.NewServer(listener.Config{
		BindAddr:      cfg.Listener.BindAddr,
		Session:       sessionCfg,
		MaxConnsPerIP: cfg.Listener.MaxConnsPerIP,
		ShutdownGrace: cfg.Listener.ShutdownGrace,
	})

	return &Runtime{
		Server:      srv,
		Stores:      stores,
		Dupe:        dupeStore,
		Limiter:     limiter,
		stopJanitor: stopJanitor,
	}, nil
}

func buildIdentityStore(cfg *IdentityConfig) (*identity.MemoryStore, error) {
	store := identity.NewMemoryStore()
	for i := range cfg.Sections {
		if err := store.PutSection(&cfg.Sections[i]); err != nil {
			return nil, fmt.Errorf("seed section %q: %w", cfg.Sections[i].Name, err)
		}
	}
	for i := range cfg.Groups {
		if err := store.PutGroup(&cfg.Groups[i]); err != nil {
			return nil, fmt.Errorf("seed group %q: %w", cfg.Groups[i].Name, err)
		}
	}
	for i := range cfg.Users {
		if err := store.PutUser(&cfg.Users[i]); err != nil {
			return nil, fmt.Errorf("seed user %q: %w", cfg.Users[i].Username, err)
		}
	}
	return store, nil
}

func buildResolver(cfg *Config, stores identity.Store, releases *registry.ReleaseRegistry, pre *registry.PreRegistry) *vfs.Resolver {
	mounts := make([]vfs.Mount, 0, len(cfg.VFS.Mounts))
	for _, m := range cfg.VFS.Mounts {
		mounts = append(mounts, vfs.Mount{
			VirtualRoot:  m.VirtualRoot,
			PhysicalRoot: m.PhysicalRoot,
			ReadOnly:     m.ReadOnly,
		})
	}
	mountTable := vfs.NewMountTable(mounts)
	physical := &vfs.PhysicalProvider{Mounts: mountTable}

	providers := []vfs.Provider{
		&vfs.PreProvider{Pre: pre},
		&vfs.ReleaseProvider{Releases: releases, Sections: stores},
		&vfs.GroupProvider{Releases: releases, Groups: stores},
		physical,
		&vfs.SectionShortcutProvider{Sections: stores, Next: physical},
	}
	return vfs.NewResolver(providers, cfg.VFS.ResolveCacheTTL)
}

func buildTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	cert, err := certs.Load(certs.Config{
		PFXPath:     cfg.PFXPath,
		PFXPassword: cfg.PFXPassword,
		Subject:     cfg.Subject,
		ValidFor:    certs.DefaultValidFor,
	})
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tlsVersionOrDefault(cfg.MinVersion),
		// RequestClientCert (not Require) lets the ident TLSBinding check
		// see a client certificate's common name when one is presented,
		// without rejecting clients that authenticate by password alone.
		ClientAuth: tls.RequestClientCert,
	}, nil
}

func buildFXPGlobal(cfg *FXPGlobalConfig) fxp.GlobalPolicy {
	return fxp.GlobalPolicy{
		Enabled:                    cfg.Enabled,
		AllowedPeers:               cfg.AllowedPeers,
		DisallowSecure:             cfg.DisallowSecure,
		DisallowPlain:              cfg.DisallowPlain,
		RequireMatchingTLSIncoming: cfg.RequireMatchingTLSIncoming,
		RequireMatchingTLSOutgoing: cfg.RequireMatchingTLSOutgoing,
		MinTLSVersionIncoming:      tlsVersionOrDefault(cfg.MinTLSVersionIncoming),
		MinTLSVersionOutgoing:      tlsVersionOrDefault(cfg.MinTLSVersionOutgoing),
	}
}

func tlsVersionOrDefault(name string) uint16 {
	if v, ok := tlsVersions[name]; ok {
		return v
	}
	return tls.VersionTLS12
}

func buildFXPPolicy(cfg *FXPPolicyConfig) fxp.Policy {
	toSet := func(items []string) map[string]bool {
		if len(items) == 0 {
			return nil
		}
		m := make(map[string]bool, len(items))
		for _, it := range items {
			m[it] = true
		}
		return m
	}
	return fxp.Policy{
		Enabled:              cfg.Enabled,
		AllowAdminFXP:        cfg.AllowAdminFXP,
		AllowUserFXP:         cfg.AllowUserFXP,
		RequireUserAllowFlag: cfg.RequireUserAllowFlag,

		DenySections:  toSet(cfg.DenySections),
		AllowSections: toSet(cfg.AllowSections),

		SameHostProtection: cfg.SameHostProtection,

		DenyHosts:  cfg.DenyHosts,
		AllowHosts: cfg.AllowHosts,

		AllowIncoming: cfg.AllowIncoming,
		AllowOutgoing: cfg.AllowOutgoing,

		DisallowSecure:        cfg.DisallowSecure,
		DisallowPlain:         cfg.DisallowPlain,
		RequireControlTLS:     cfg.RequireControlTLS,
		RequireMatchingTLS:    cfg.RequireMatchingTLS,
		MinTLSVersionIncoming: cfg.MinTLSVersionIncoming,
		MinTLSVersionOutgoing: cfg.MinTLSVersionOutgoing,

		RequireIdentMatch: cfg.RequireIdentMatch,
		RequiredIdent:     cfg.RequiredIdent,
	}
}
