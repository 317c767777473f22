// Package session implements the per-connection FTP control channel
// state machine: command loop, authentication, the unauthenticated
// command whitelist, TLS upgrade, idle timeouts, and cancellation.
package session

// State is the control channel's primary state:
// Greeting -> UnauthUser -> AwaitPass -> Authenticated -> [DataPending]
// -> Authenticated -> Closing.
type State int

const (
	StateGreeting State = iota
	StateUnauthUser
	StateAwaitPass
	StateAuthenticated
	StateDataPending
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateGreeting:
		return "Greeting"
	case StateUnauthUser:
		return "UnauthUser"
	case StateAwaitPass:
		return "AwaitPass"
	case StateAuthenticated:
		return "Authenticated"
	case StateDataPending:
		return "DataPending"
	case StateClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// TLSState is the control channel's orthogonal TLS sub-state:
// Plain -> TlsNegotiating -> Tls.
type TLSState int

const (
	TLSPlain TLSState = iota
	TLSNegotiating
	TLSActive
)

// unauthWhitelist is the set of verbs a not-yet-logged-in session may
// issue. Anything else gets 530.
var unauthWhitelist = map[string]bool{
	"USER": true, "PASS": true, "AUTH": true, "PBSZ": true, "PROT": true,
	"FEAT": true, "SYST": true, "NOOP": true, "OPTS": true, "HELP": true,
	"STAT": true, "QUIT": true,
}
