package fxp

// Policy is the per-user (or per-group) FXP policy layer, consulted
// alongside GlobalPolicy.
type Policy struct {
	Enabled bool // "Policy evaluation disabled" when false (rule 2)

	AllowAdminFXP bool
	AllowUserFXP  bool
	RequireUserAllowFlag bool

	DenySections  map[string]bool
	AllowSections map[string]bool // non-empty means "only these sections"

	SameHostProtection bool

	DenyHosts  []string // plain IP, CIDR, hostname, or "*" wildcard hostname
	AllowHosts []string // empty means "allow any", subject to other rules

	AllowIncoming bool
	AllowOutgoing bool

	DisallowSecure bool
	DisallowPlain  bool
	RequireControlTLS   bool
	RequireMatchingTLS   bool
	MinTLSVersionIncoming uint16
	MinTLSVersionOutgoing uint16

	RequireIdentMatch bool
	RequiredIdent     string
}

// GlobalPolicy is the daemon-wide FXP policy layer; several of its
// fields compose with Policy rather than override it.
type GlobalPolicy struct {
	Enabled bool // "Global FXP disabled" when false (rule 1)

	AllowedPeers []string

	DisallowSecure bool
	DisallowPlain  bool
	RequireMatchingTLSIncoming bool
	RequireMatchingTLSOutgoing bool
	MinTLSVersionIncoming      uint16
	MinTLSVersionOutgoing      uint16
}
