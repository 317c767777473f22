package fxp

import "fmt"

// Decision is the engine's output: exactly one of Allow or Deny(reason).
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Decide evaluates req under policy and global in a fixed rule order.
// First matching rule wins.
func Decide(req Request, policy Policy, global GlobalPolicy) Decision {
	// 1. Global FXP disabled.
	if !global.Enabled {
		return deny("FXP is disabled globally")
	}

	// 2. Policy evaluation disabled -> allow, subject only to the global flag.
	if !policy.Enabled {
		return allow()
	}

	// 3. Admin gating.
	if req.IsAdmin {
		if !policy.AllowAdminFXP {
			return deny("admin FXP is not permitted")
		}
	} else if !policy.AllowUserFXP {
		return deny("FXP is not permitted for this user")
	}
	if policy.RequireUserAllowFlag && !req.UserAllowFXP {
		return deny("user lacks the FXP-allowed flag")
	}

	// 4. Section filter.
	if policy.DenySections[req.Section] {
		return deny(fmt.Sprintf("section %q denies FXP", req.Section))
	}
	if len(policy.AllowSections) > 0 && !policy.AllowSections[req.Section] {
		return deny(fmt.Sprintf("section %q is not in the FXP allow-list", req.Section))
	}

	// 5. Same-host protection.
	if policy.SameHostProtection && req.ControlPeerIP != "" && req.ControlPeerIP == req.RemoteAddr {
		return deny("FXP target matches the control connection's peer")
	}

	// 6. Peer matching: deny-hosts first, then allow-set as the union of
	// policy trusted hosts and global allowed-peers.
	if anyMatches(policy.DenyHosts, req.RemoteAddr, req.RemoteHost) {
		return deny("remote peer is in the FXP deny list")
	}
	allowSet := append(append([]string(nil), policy.AllowHosts...), global.AllowedPeers...)
	if len(allowSet) > 0 && !anyMatches(allowSet, req.RemoteAddr, req.RemoteHost) {
		return deny("remote peer is not in the FXP allow list")
	}

	// 7. Direction toggles.
	if req.Direction == Incoming && !policy.AllowIncoming {
		return deny("incoming FXP is not permitted")
	}
	if req.Direction == Outgoing && !policy.AllowOutgoing {
		return deny("outgoing FXP is not permitted")
	}

	// 8. TLS posture.
	if d := decideTLS(req, policy, global); !d.Allowed {
		return d
	}

	// 9. IDENT.
	if policy.RequireIdentMatch && policy.RequiredIdent != "" && policy.RequiredIdent != req.RemoteIdent {
		return deny("remote ident does not match the required value")
	}

	// 10. Else allow.
	return allow()
}

func decideTLS(req Request, policy Policy, global GlobalPolicy) Decision {
	secure := req.isSecure()

	if secure && (policy.DisallowSecure || global.DisallowSecure) {
		return deny("secure FXP is disallowed")
	}
	if !secure && (policy.DisallowPlain || global.DisallowPlain) {
		return deny("plaintext FXP is disallowed")
	}

	if policy.RequireControlTLS && !req.ControlTLSActive {
		return deny("control channel must be TLS-protected for FXP")
	}

	requireMatching := policy.RequireMatchingTLS
	if req.Direction == Incoming {
		requireMatching = requireMatching || global.RequireMatchingTLSIncoming
	} else {
		requireMatching = requireMatching || global.RequireMatchingTLSOutgoing
	}
	if requireMatching && req.ControlTLSActive != req.DataTLSActive {
		return deny("control and data channel TLS state must match")
	}

	if secure {
		minVersion := policy.MinTLSVersionIncoming
		globalMin := global.MinTLSVersionIncoming
		if req.Direction == Outgoing {
			minVersion = policy.MinTLSVersionOutgoing
			globalMin = global.MinTLSVersionOutgoing
		}
		if globalMin > minVersion {
			minVersion = globalMin
		}
		if minVersion > 0 && (req.ControlTLSVersion < minVersion || req.DataTLSVersion < minVersion) {
			return deny("TLS version below the required minimum for FXP")
		}
	}

	return allow()
}
