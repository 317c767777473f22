// Package config loads the daemon's static configuration: listener
// binding, TLS identity, VFS mounts, account bootstrap, and the policy
// knobs for the abuse limiter, IDENT cross-check, and FXP engine. It
// then assembles those settings into a runnable *listener.Server.
//
// Configuration precedence (highest to lowest): environment variables
// (AMFTPD_*) > config file (YAML) > built-in defaults. No setting is read
// from a CLI flag; --config only selects which file is loaded.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

// Config is the top-level configuration record.
type Config struct {
	ServerName string `mapstructure:"server_name" yaml:"server_name" validate:"required"`

	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Listener ListenerConfig `mapstructure:"listener" yaml:"listener"`
	TLS      TLSConfig      `mapstructure:"tls" yaml:"tls"`
	Data     DataConfig     `mapstructure:"data" yaml:"data"`
	VFS      VFSConfig      `mapstructure:"vfs" yaml:"vfs"`
	Dupe     DupeConfig     `mapstructure:"dupe" yaml:"dupe"`
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`
	Abuse    AbuseConfig    `mapstructure:"abuse" yaml:"abuse"`
	Ident    IdentConfig    `mapstructure:"ident" yaml:"ident"`
	FXP      FXPConfig      `mapstructure:"fxp" yaml:"fxp"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Admin    AdminConfig    `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig controls internal/logger's output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ListenerConfig configures pkg/listener.
type ListenerConfig struct {
	BindAddr      string        `mapstructure:"bind_addr" yaml:"bind_addr" validate:"required"`
	MaxConnsPerIP int           `mapstructure:"max_conns_per_ip" yaml:"max_conns_per_ip" validate:"omitempty,min=0"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
}

// TLSConfig configures pkg/certs and the control channel's TLS posture.
type TLSConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	PFXPath     string `mapstructure:"pfx_path" yaml:"pfx_path"`
	PFXPassword string `mapstructure:"pfx_password" yaml:"pfx_password,omitempty"`
	Subject     string `mapstructure:"subject" yaml:"subject"`
	// MinVersion is one of "1.0", "1.1", "1.2", "1.3".
	MinVersion string `mapstructure:"min_version" yaml:"min_version" validate:"omitempty,oneof=1.0 1.1 1.2 1.3"`
}

// DataConfig configures pkg/datachannel: the passive port range, the
// address PASV/EPSV replies advertise, and the session's blocking I/O
// timeouts.
type DataConfig struct {
	PassivePortLow   int           `mapstructure:"passive_port_low" yaml:"passive_port_low" validate:"required,min=1,max=65535"`
	PassivePortHigh  int           `mapstructure:"passive_port_high" yaml:"passive_port_high" validate:"required,min=1,max=65535,gtefield=PassivePortLow"`
	PassiveBindIP    string        `mapstructure:"passive_bind_ip" yaml:"passive_bind_ip" validate:"required,ip"`
	DataDialTimeout  time.Duration `mapstructure:"data_dial_timeout" yaml:"data_dial_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ControlReadTimeout time.Duration `mapstructure:"control_read_timeout" yaml:"control_read_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout" yaml:"tls_handshake_timeout"`
}

// MountConfig binds a virtual-root prefix to a physical directory
// (mirrors pkg/vfs.Mount).
type MountConfig struct {
	VirtualRoot  string `mapstructure:"virtual_root" yaml:"virtual_root" validate:"required"`
	PhysicalRoot string `mapstructure:"physical_root" yaml:"physical_root" validate:"required"`
	ReadOnly     bool   `mapstructure:"read_only" yaml:"read_only"`
}

// VFSConfig configures the resolver's provider chain.
type VFSConfig struct {
	Mounts       []MountConfig `mapstructure:"mounts" yaml:"mounts" validate:"required,min=1,dive"`
	ResolveCacheTTL time.Duration `mapstructure:"resolve_cache_ttl" yaml:"resolve_cache_ttl"`
}

// DupeConfig configures pkg/dupe's three-file store, which backs the
// release/pre/group VFS providers.
type DupeConfig struct {
	StoreDir string `mapstructure:"store_dir" yaml:"store_dir" validate:"required"`
	PreSnapshotPath string `mapstructure:"pre_snapshot_path" yaml:"pre_snapshot_path"`
}

// IdentityConfig bootstraps the in-memory account store. Users carry
// pre-hashed passwords (see `amftpd user add`, which hashes on write);
// this config layer never hashes a plaintext password itself.
type IdentityConfig struct {
	Sections []identity.Section `mapstructure:"sections" yaml:"sections"`
	Groups   []identity.Group   `mapstructure:"groups" yaml:"groups"`
	Users    []identity.User    `mapstructure:"users" yaml:"users"`
}

// AbuseConfig mirrors pkg/abuse.Config with config tags; Build converts
// it to an abuse.Config.
type AbuseConfig struct {
	Enabled                bool          `mapstructure:"enabled" yaml:"enabled"`
	FailedLoginWindow      time.Duration `mapstructure:"failed_login_window" yaml:"failed_login_window"`
	MaxFailedLoginsPerIP   int           `mapstructure:"max_failed_logins_per_ip" yaml:"max_failed_logins_per_ip"`
	FailedLoginBanDuration time.Duration `mapstructure:"failed_login_ban_duration" yaml:"failed_login_ban_duration"`
	CommandWindow          time.Duration `mapstructure:"command_window" yaml:"command_window"`
	MaxCommandsPerMinute   int           `mapstructure:"max_commands_per_minute" yaml:"max_commands_per_minute"`
	ThrottleDelay          time.Duration `mapstructure:"throttle_delay" yaml:"throttle_delay"`
	CommandBanDuration     time.Duration `mapstructure:"command_ban_duration" yaml:"command_ban_duration"`
	IdleEvictThreshold     time.Duration `mapstructure:"idle_evict_threshold" yaml:"idle_evict_threshold"`
	JanitorInterval        time.Duration `mapstructure:"janitor_interval" yaml:"janitor_interval"`
}

// IdentConfig configures the RFC 1413 IDENT cross-check and its two
// optional binding sub-policies.
type IdentConfig struct {
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`

	RequireForAll bool `mapstructure:"require_for_all" yaml:"require_for_all"`
	WarnOnly      bool `mapstructure:"warn_only" yaml:"warn_only"`

	// TLSBinding compares the ident username against the control
	// connection's client-certificate common name.
	TLSBinding               bool `mapstructure:"tls_binding" yaml:"tls_binding"`
	DenyOnTLSBindingMismatch bool `mapstructure:"deny_on_tls_binding_mismatch" yaml:"deny_on_tls_binding_mismatch"`

	// ReverseDNSCheck requires the peer's PTR label to contain the ident
	// username.
	ReverseDNSCheck          bool `mapstructure:"reverse_dns_check" yaml:"reverse_dns_check"`
	DenyOnReverseDNSMismatch bool `mapstructure:"deny_on_reverse_dns_mismatch" yaml:"deny_on_reverse_dns_mismatch"`
}

// FXPConfig configures pkg/fxp's policy and global-policy layers.
type FXPConfig struct {
	// Global mirrors pkg/fxp.GlobalPolicy, the daemon-wide kill switch and
	// TLS-posture rules every FXP request is checked against first.
	Global FXPGlobalConfig `mapstructure:"global" yaml:"global"`
	// DefaultPolicy mirrors pkg/fxp.Policy, applied to every user until
	// per-user FXP policy overrides are added to the identity store.
	DefaultPolicy FXPPolicyConfig `mapstructure:"default_policy" yaml:"default_policy"`
}

type FXPGlobalConfig struct {
	Enabled                    bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedPeers               []string `mapstructure:"allowed_peers" yaml:"allowed_peers"`
	DisallowSecure             bool     `mapstructure:"disallow_secure" yaml:"disallow_secure"`
	DisallowPlain              bool     `mapstructure:"disallow_plain" yaml:"disallow_plain"`
	RequireMatchingTLSIncoming bool     `mapstructure:"require_matching_tls_incoming" yaml:"require_matching_tls_incoming"`
	RequireMatchingTLSOutgoing bool     `mapstructure:"require_matching_tls_outgoing" yaml:"require_matching_tls_outgoing"`
	// MinTLSVersionIncoming/Outgoing are one of "1.0", "1.1", "1.2", "1.3",
	// same encoding as TLSConfig.MinVersion.
	MinTLSVersionIncoming string `mapstructure:"min_tls_version_incoming" yaml:"min_tls_version_incoming" validate:"omitempty,oneof=1.0 1.1 1.2 1.3"`
	MinTLSVersionOutgoing string `mapstructure:"min_tls_version_outgoing" yaml:"min_tls_version_outgoing" validate:"omitempty,oneof=1.0 1.1 1.2 1.3"`
}

type FXPPolicyConfig struct {
	Enabled              bool `mapstructure:"enabled" yaml:"enabled"`
	AllowAdminFXP        bool `mapstructure:"allow_admin_fxp" yaml:"allow_admin_fxp"`
	AllowUserFXP         bool `mapstructure:"allow_user_fxp" yaml:"allow_user_fxp"`
	RequireUserAllowFlag bool `mapstructure:"require_user_allow_flag" yaml:"require_user_allow_flag"`

	DenySections  []string `mapstructure:"deny_sections" yaml:"deny_sections"`
	AllowSections []string `mapstructure:"allow_sections" yaml:"allow_sections"`

	SameHostProtection bool `mapstructure:"same_host_protection" yaml:"same_host_protection"`

	DenyHosts  []string `mapstructure:"deny_hosts" yaml:"deny_hosts"`
	AllowHosts []string `mapstructure:"allow_hosts" yaml:"allow_hosts"`

	AllowIncoming bool `mapstructure:"allow_incoming" yaml:"allow_incoming"`
	AllowOutgoing bool `mapstructure:"allow_outgoing" yaml:"allow_outgoing"`

	DisallowSecure        bool   `mapstructure:"disallow_secure" yaml:"disallow_secure"`
	DisallowPlain         bool   `mapstructure:"disallow_plain" yaml:"disallow_plain"`
	RequireControlTLS     bool   `mapstructure:"require_control_tls" yaml:"require_control_tls"`
	RequireMatchingTLS    bool   `mapstructure:"require_matching_tls" yaml:"require_matching_tls"`
	MinTLSVersionIncoming uint16 `mapstructure:"min_tls_version_incoming" yaml:"min_tls_version_incoming"`
	MinTLSVersionOutgoing uint16 `mapstructure:"min_tls_version_outgoing" yaml:"min_tls_version_outgoing"`

	RequireIdentMatch bool   `mapstructure:"require_ident_match" yaml:"require_ident_match"`
	RequiredIdent     string `mapstructure:"required_ident" yaml:"required_ident"`
}

// MetricsConfig controls the Prometheus metrics mirror in pkg/events.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// AdminConfig holds a siteop username and password hash/salt in the
// config file. Neither `amftpd init` nor Build reads it; siteop accounts
// are created with `amftpd user add --admin`.
type AdminConfig struct {
	Username     string `mapstructure:"username" yaml:"username"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash,omitempty"`
	PasswordSalt string `mapstructure:"password_salt" yaml:"password_salt,omitempty"`
}

// Load reads the YAML config file, lets AMFTPD_* environment variables
// override the keys it sets, fills zero-valued fields with built-in
// defaults, and validates the result. If no config file is found it
// returns DefaultConfig() as it is: the environment is not consulted and
// the result is not validated.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := DefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
),
)); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories as
// needed. Used by `amftpd init`.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("AMFTPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amftpd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "amftpd")
}

// DefaultConfigPath returns the config file path Load and Save use when
// no explicit path is given.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}
