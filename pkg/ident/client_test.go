package ident

import "testing"

func TestParseResponseSuccess(t *testing.T) {
	r, err := parseResponse("6193, 23 : USERID : UNIX : stjohns")
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if r.RemotePort != 6193 || r.LocalPort != 23 {
		t.Fatalf("ports = %d, %d", r.RemotePort, r.LocalPort)
	}
	if r.OpSystem != "UNIX" || r.Username != "stjohns" {
		t.Fatalf("opsystem/username = %q, %q", r.OpSystem, r.Username)
	}
}

func TestParseResponseRejectsErrorType(t *testing.T) {
	if _, err := parseResponse("6193, 23 : ERROR : NO-USER"); err == nil {
		t.Fatal("expected an error for a non-USERID response type")
	}
}

func TestParseResponseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"garbage",
		"6193 23 : USERID : UNIX : bob",
		"abc, 23 : USERID : UNIX : bob",
	}
	for _, c := range cases {
		if _, err := parseResponse(c); err == nil {
			t.Fatalf("expected an error for malformed input %q", c)
		}
	}
}
