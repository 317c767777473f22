package ident

import (
	"fmt"
	"net"
	"strings"
)

// Policy configures how an ident lookup outcome affects login. Each
// sub-check is independently toggled.
type Policy struct {
	LoggingOnly bool // always log; never deny, regardless of the other flags

	StrictUserMatch      bool
	DenyOnStrictMismatch bool

	GroupMappings map[string]string // ident username -> group to add

	TLSBinding               bool
	DenyOnTLSBindingMismatch bool

	ReverseDNSCheck          bool
	DenyOnReverseDNSMismatch bool
}

// Outcome is the result of applying Policy to an ident lookup.
type Outcome struct {
	Denied       bool
	DenyReason   string
	Warnings     []string
	AddedGroups  []string
}

func (o *Outcome) warn(format string, args...any) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

// Apply evaluates policy against an ident lookup result (nil if the
// lookup failed) for a session authenticated as ftpUsername, with an
// optional TLS client-certificate common name and a reverse-DNS PTR
// label for the peer.
func Apply(policy Policy, result *Result, lookupErr error, ftpUsername, tlsCommonName, ptrLabel string) Outcome {
	var out Outcome

	if lookupErr != nil || result == nil {
		out.warn("ident lookup failed: %v", lookupErr)
		return out // LoggingOnly and every other check require a result
	}
	out.warn("ident lookup succeeded: %s", result.Username)

	if policy.LoggingOnly {
		return out
	}

	if policy.StrictUserMatch && !strings.EqualFold(result.Username, ftpUsername) {
		out.warn("ident username %q does not match FTP username %q", result.Username, ftpUsername)
		if policy.DenyOnStrictMismatch {
			out.Denied = true
			out.DenyReason = "ident username does not match login username"
			return out
		}
	}

	if group, ok := policy.GroupMappings[strings.ToLower(result.Username)]; ok {
		out.AddedGroups = append(out.AddedGroups, group)
	}

	if policy.TLSBinding {
		if !strings.EqualFold(result.Username, tlsCommonName) {
			if policy.DenyOnTLSBindingMismatch {
				out.Denied = true
				out.DenyReason = "ident username does not match the TLS certificate common name"
				return out
			}
			out.warn("ident username %q does not match TLS common name %q", result.Username, tlsCommonName)
		}
	}

	if policy.ReverseDNSCheck {
		if !strings.Contains(strings.ToLower(ptrLabel), strings.ToLower(result.Username)) {
			if policy.DenyOnReverseDNSMismatch {
				out.Denied = true
				out.DenyReason = "reverse DNS label does not contain the ident username"
				return out
			}
			out.warn("PTR label %q does not contain ident username %q", ptrLabel, result.Username)
		}
	}

	return out
}

// ReverseDNSLabel performs the PTR lookup the ReverseDnsCheck
// needs, returning the first resolved name or an empty string on failure.
func ReverseDNSLabel(ip net.IP) string {
	names, err := net.LookupAddr(ip.String())
	if err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}
