package ident

import "testing"

func TestApplyLoggingOnlyNeverDenies(t *testing.T) {
	policy := Policy{LoggingOnly: true, StrictUserMatch: true, DenyOnStrictMismatch: true}
	out := Apply(policy, &Result{Username: "mismatch"}, nil, "alice", "", "")
	if out.Denied {
		t.Fatal("LoggingOnly must never deny")
	}
}

func TestApplyStrictUserMatchDenies(t *testing.T) {
	policy := Policy{StrictUserMatch: true, DenyOnStrictMismatch: true}
	out := Apply(policy, &Result{Username: "bob"}, nil, "alice", "", "")
	if !out.Denied {
		t.Fatal("expected deny on strict username mismatch")
	}
}

func TestApplyStrictUserMatchWarnsWithoutDenyFlag(t *testing.T) {
	policy := Policy{StrictUserMatch: true}
	out := Apply(policy, &Result{Username: "bob"}, nil, "alice", "", "")
	if out.Denied {
		t.Fatal("expected no deny without DenyOnStrictMismatch")
	}
	if len(out.Warnings) == 0 {
		t.Fatal("expected a warning to be recorded")
	}
}

func TestApplyGroupMapping(t *testing.T) {
	policy := Policy{GroupMappings: map[string]string{"bob": "vip"}}
	out := Apply(policy, &Result{Username: "bob"}, nil, "alice", "", "")
	if len(out.AddedGroups) != 1 || out.AddedGroups[0] != "vip" {
		t.Fatalf("expected group mapping to add vip, got %+v", out.AddedGroups)
	}
}

func TestApplyTLSBindingDenies(t *testing.T) {
	policy := Policy{TLSBinding: true, DenyOnTLSBindingMismatch: true}
	out := Apply(policy, &Result{Username: "bob"}, nil, "alice", "someone-else", "")
	if !out.Denied {
		t.Fatal("expected deny on TLS binding mismatch")
	}
}

func TestApplyReverseDNSCheckDenies(t *testing.T) {
	policy := Policy{ReverseDNSCheck: true, DenyOnReverseDNSMismatch: true}
	out := Apply(policy, &Result{Username: "bob"}, nil, "alice", "", "unrelated.example.com")
	if !out.Denied {
		t.Fatal("expected deny when the PTR label does not contain the ident username")
	}
}

func TestApplyLookupFailureNeverDeniesOutright(t *testing.T) {
	policy := Policy{StrictUserMatch: true, DenyOnStrictMismatch: true}
	out := Apply(policy, nil, errStub, "alice", "", "")
	if out.Denied {
		t.Fatal("a failed lookup should warn, not deny, independent of policy flags")
	}
}

var errStub = &stubErr{"lookup failed"}

type stubErr struct{ msg string }

func (e *stubErr) Error() string { return e.msg }
