// Package identity holds the daemon's account model: users, groups, and
// sections, plus PBKDF2-SHA256 password hashing and a thread-safe
// in-memory store.
//
// User/Group structs wear yaml+mapstructure tags so the same type
// serves config-file bootstrap and runtime state, adapted from NFS/SMB
// identity mapping (UID/GID/SID) to scene-FTPd accounting (ratio,
// credits, capability flags, IDENT binding).
package identity

import (
	"net"
	"time"
)

// Capability is a named permission flag on a User.
type Capability string

const (
	CapUpload   Capability = "upload"
	CapDownload Capability = "download"
	CapActive   Capability = "active" // permitted to use active-mode data connections
	CapFXP      Capability = "fxp"
	CapAdmin    Capability = "admin" // siteop
)

// IdentBinding configures the optional RFC 1413 cross-check for a user.
type IdentBinding struct {
	RequiredIdent string `yaml:"required_ident,omitempty" mapstructure:"required_ident"`
	RequireMatch  bool   `yaml:"require_match" mapstructure:"require_match"`
}

// User is an authenticated identity with password hash, home directory,
// group memberships, capability flags, policy fields, and a credit
// balance. Usernames are unique case-insensitively; enforced by Store,
// not by User itself.
type User struct {
	Username     string   `yaml:"username" mapstructure:"username"`
	PasswordHash string   `yaml:"password_hash" mapstructure:"password_hash"`
	PasswordSalt string   `yaml:"password_salt" mapstructure:"password_salt"`
	HomeDir      string   `yaml:"home_dir" mapstructure:"home_dir"`
	PrimaryGroup string   `yaml:"primary_group" mapstructure:"primary_group"`
	SecondaryGroups []string `yaml:"secondary_groups,omitempty" mapstructure:"secondary_groups"`

	Capabilities map[Capability]bool `yaml:"capabilities" mapstructure:"capabilities"`

	IdleTimeout       time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxConcurrentLogins int         `yaml:"max_concurrent_logins" mapstructure:"max_concurrent_logins"`
	MaxUploadRateKiBs   int64       `yaml:"max_upload_rate_kibs,omitempty" mapstructure:"max_upload_rate_kibs"`
	MaxDownloadRateKiBs int64       `yaml:"max_download_rate_kibs,omitempty" mapstructure:"max_download_rate_kibs"`

	// CreditsKiB is the user's balance in KiB, consumed on download and
	// awarded on upload by the credit engine (pkg/credit) under the
	// user store's per-user lock.
	CreditsKiB int64 `yaml:"credits_kib" mapstructure:"credits_kib"`

	AllowedIPMask string `yaml:"allowed_ip_mask,omitempty" mapstructure:"allowed_ip_mask"`

	Ident IdentBinding `yaml:"ident,omitempty" mapstructure:"ident"`

	Enabled   bool      `yaml:"enabled" mapstructure:"enabled"`
	CreatedAt time.Time `yaml:"created_at,omitempty" mapstructure:"created_at"`
	LastLogin time.Time `yaml:"last_login,omitempty" mapstructure:"last_login"`
}

// HasCapability reports whether the user has the named capability flag.
func (u *User) HasCapability(c Capability) bool {
	if u == nil || u.Capabilities == nil {
		return false
	}
	return u.Capabilities[c]
}

// IsAdmin reports whether the user is a siteop.
func (u *User) IsAdmin() bool {
	return u.HasCapability(CapAdmin)
}

// MatchesIPMask reports whether ip satisfies the user's AllowedIPMask, or
// true if no mask is configured. The mask is a CIDR (e.g. "10.0.0.0/8")
// or a bare IP for an exact match.
func (u *User) MatchesIPMask(ip net.IP) bool {
	if u.AllowedIPMask == "" {
		return true
	}
	if _, cidr, err := net.ParseCIDR(u.AllowedIPMask); err == nil {
		return cidr.Contains(ip)
	}
	allowed := net.ParseIP(u.AllowedIPMask)
	return allowed != nil && allowed.Equal(ip)
}
