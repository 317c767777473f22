package fxp

import "testing"

func basePolicy() Policy {
	return Policy{
		Enabled:       true,
		AllowAdminFXP: true,
		AllowUserFXP:  true,
		AllowIncoming: true,
		AllowOutgoing: true,
	}
}

func baseGlobal() GlobalPolicy {
	return GlobalPolicy{Enabled: true}
}

func TestDecideGlobalDisabledDeniesFirst(t *testing.T) {
	global := baseGlobal()
	global.Enabled = false
	d := Decide(Request{}, basePolicy(), global)
	if d.Allowed {
		t.Fatal("expected deny when FXP is globally disabled")
	}
}

func TestDecidePolicyDisabledAllowsSubjectToGlobal(t *testing.T) {
	policy := basePolicy()
	policy.Enabled = false
	d := Decide(Request{}, policy, baseGlobal())
	if !d.Allowed {
		t.Fatalf("expected allow when policy evaluation is disabled, got deny: %s", d.Reason)
	}
}

func TestDecideAdminGating(t *testing.T) {
	policy := basePolicy()
	policy.AllowAdminFXP = false
	d := Decide(Request{IsAdmin: true}, policy, baseGlobal())
	if d.Allowed {
		t.Fatal("expected deny for admin FXP when disallowed")
	}
}

func TestDecideRequireUserAllowFlag(t *testing.T) {
	policy := basePolicy()
	policy.RequireUserAllowFlag = true
	d := Decide(Request{UserAllowFXP: false}, policy, baseGlobal())
	if d.Allowed {
		t.Fatal("expected deny when the user-allow flag is required and absent")
	}
}

func TestDecideSectionDenyAndAllowSets(t *testing.T) {
	policy := basePolicy()
	policy.DenySections = map[string]bool{"PRIVATE": true}
	d := Decide(Request{Section: "PRIVATE"}, policy, baseGlobal())
	if d.Allowed {
		t.Fatal("expected deny for a denied section")
	}

	policy2 := basePolicy()
	policy2.AllowSections = map[string]bool{"APPS": true}
	d2 := Decide(Request{Section: "GAMES"}, policy2, baseGlobal())
	if d2.Allowed {
		t.Fatal("expected deny for a section outside a non-empty allow-set")
	}
}

func TestDecideSameHostProtection(t *testing.T) {
	policy := basePolicy()
	policy.SameHostProtection = true
	d := Decide(Request{ControlPeerIP: "10.0.0.5", RemoteAddr: "10.0.0.5"}, policy, baseGlobal())
	if d.Allowed {
		t.Fatal("expected deny when the FXP target equals the control peer")
	}
}

func TestDecidePeerMatching(t *testing.T) {
	policy := basePolicy()
	policy.DenyHosts = []string{"10.0.0.0/8"}
	d := Decide(Request{RemoteAddr: "10.1.2.3"}, policy, baseGlobal())
	if d.Allowed {
		t.Fatal("expected deny for a denied CIDR range")
	}

	policy2 := basePolicy()
	policy2.AllowHosts = []string{"*.trusted.example"}
	d2 := Decide(Request{RemoteAddr: "203.0.113.1", RemoteHost: "ftp.trusted.example"}, policy2, baseGlobal())
	if !d2.Allowed {
		t.Fatalf("expected allow for a host matching the wildcard allow pattern, got deny: %s", d2.Reason)
	}

	d3 := Decide(Request{RemoteAddr: "203.0.113.1", RemoteHost: "evil.example"}, policy2, baseGlobal())
	if d3.Allowed {
		t.Fatal("expected deny for a host not matching a non-empty allow-set")
	}
}

func TestDecideDirectionToggles(t *testing.T) {
	policy := basePolicy()
	policy.AllowOutgoing = false
	d := Decide(Request{Direction: Outgoing}, policy, baseGlobal())
	if d.Allowed {
		t.Fatal("expected deny for disallowed outgoing direction")
	}
}

func TestDecideTLSRequireControlTLS(t *testing.T) {
	policy := basePolicy()
	policy.RequireControlTLS = true
	d := Decide(Request{ControlTLSActive: false}, policy, baseGlobal())
	if d.Allowed {
		t.Fatal("expected deny when control TLS is required but absent")
	}
}

func TestDecideTLSMinimumVersion(t *testing.T) {
	policy := basePolicy()
	policy.MinTLSVersionIncoming = 0x0304 // TLS 1.3
	req := Request{
		Direction:        Incoming,
		ControlTLSActive: true,
		DataTLSActive:    true,
		ControlTLSVersion: 0x0303, // TLS 1.2
		DataTLSVersion:    0x0304,
	}
	d := Decide(req, policy, baseGlobal())
	if d.Allowed {
		t.Fatal("expected deny when a TLS leg is below the configured minimum version")
	}
}

func TestDecideIdentMismatch(t *testing.T) {
	policy := basePolicy()
	policy.RequireIdentMatch = true
	policy.RequiredIdent = "scene"
	d := Decide(Request{RemoteIdent: "other"}, policy, baseGlobal())
	if d.Allowed {
		t.Fatal("expected deny for an ident mismatch")
	}
}

func TestDecideAllowsWhenEverythingPasses(t *testing.T) {
	d := Decide(Request{Direction: Incoming}, basePolicy(), baseGlobal())
	if !d.Allowed {
		t.Fatalf("expected allow, got deny: %s", d.Reason)
	}
}
