package config

import "time"

// DefaultConfig returns a Config with every built-in default applied,
// primarily for `amftpd init` and tests. It has no VFS mounts, so it does
// not pass Validate until at least one entry is added to VFS.Mounts.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills any zero-valued field with its default: zero
// values are replaced with defaults, explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.ServerName == "" {
		cfg.ServerName = "amFTPd"
	}
	applyLoggingDefaults(&cfg.Logging)
	applyListenerDefaults(&cfg.Listener)
	applyTLSDefaults(&cfg.TLS)
	applyDataDefaults(&cfg.Data)
	applyVFSDefaults(&cfg.VFS)
	applyDupeDefaults(&cfg.Dupe)
	applyAbuseDefaults(&cfg.Abuse)
	applyIdentDefaults(&cfg.Ident)
	applyFXPDefaults(&cfg.FXP)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyListenerDefaults(cfg *ListenerConfig) {
	if cfg.BindAddr == "" {
		cfg.BindAddr = ":2121"
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
}

func applyTLSDefaults(cfg *TLSConfig) {
	if cfg.PFXPath == "" {
		cfg.PFXPath = "amftpd-server.pfx"
	}
	if cfg.Subject == "" {
		cfg.Subject = "amFTPd"
	}
	if cfg.MinVersion == "" {
		cfg.MinVersion = "1.2"
	}
}

func applyDataDefaults(cfg *DataConfig) {
	if cfg.PassivePortLow == 0 {
		cfg.PassivePortLow = 40000
	}
	if cfg.PassivePortHigh == 0 {
		cfg.PassivePortHigh = 40199
	}
	if cfg.PassiveBindIP == "" {
		cfg.PassiveBindIP = "0.0.0.0"
	}
	if cfg.DataDialTimeout <= 0 {
		cfg.DataDialTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.ControlReadTimeout <= 0 {
		cfg.ControlReadTimeout = cfg.IdleTimeout
	}
	if cfg.TLSHandshakeTimeout <= 0 {
		cfg.TLSHandshakeTimeout = 10 * time.Second
	}
}

func applyVFSDefaults(cfg *VFSConfig) {
	if cfg.ResolveCacheTTL <= 0 {
		cfg.ResolveCacheTTL = 5 * time.Second
	}
}

func applyDupeDefaults(cfg *DupeConfig) {
	if cfg.StoreDir == "" {
		cfg.StoreDir = "dupe"
	}
	if cfg.PreSnapshotPath == "" {
		cfg.PreSnapshotPath = "pre-registry.json"
	}
}

func applyAbuseDefaults(cfg *AbuseConfig) {
	if cfg.FailedLoginWindow <= 0 {
		cfg.FailedLoginWindow = 10 * time.Minute
	}
	if cfg.MaxFailedLoginsPerIP == 0 {
		cfg.MaxFailedLoginsPerIP = 5
	}
	if cfg.FailedLoginBanDuration <= 0 {
		cfg.FailedLoginBanDuration = 15 * time.Minute
	}
	if cfg.CommandWindow <= 0 {
		cfg.CommandWindow = time.Minute
	}
	if cfg.MaxCommandsPerMinute == 0 {
		cfg.MaxCommandsPerMinute = 60
	}
	if cfg.ThrottleDelay <= 0 {
		cfg.ThrottleDelay = 500 * time.Millisecond
	}
	if cfg.CommandBanDuration <= 0 {
		cfg.CommandBanDuration = 10 * time.Minute
	}
	if cfg.IdleEvictThreshold <= 0 {
		cfg.IdleEvictThreshold = time.Hour
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = 5 * time.Minute
	}
}

func applyIdentDefaults(cfg *IdentConfig) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
}

func applyFXPDefaults(cfg *FXPConfig) {
	// Every bool defaults to its permissive-or-restrictive zero value as
	// documented on the FXP field types; no numeric defaults apply.
}
