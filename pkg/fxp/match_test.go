package fxp

import "testing"

func TestMatchesPeerCIDR(t *testing.T) {
	if !matchesPeer("192.168.0.0/16", "192.168.1.1", "") {
		t.Fatal("expected CIDR match")
	}
	if matchesPeer("192.168.0.0/16", "10.0.0.1", "") {
		t.Fatal("expected CIDR mismatch")
	}
}

func TestMatchesPeerExactIP(t *testing.T) {
	if !matchesPeer("203.0.113.7", "203.0.113.7", "") {
		t.Fatal("expected exact IP match")
	}
}

func TestMatchesPeerHostname(t *testing.T) {
	if !matchesPeer("ftp.example.com", "", "ftp.example.com") {
		t.Fatal("expected case-insensitive hostname match")
	}
	if !matchesPeer("FTP.EXAMPLE.COM", "", "ftp.example.com") {
		t.Fatal("expected case-insensitive hostname match")
	}
}

func TestMatchWildcardHost(t *testing.T) {
	cases := []struct {
		pattern, host string
		want          bool
	}{
		{"*.example.com", "ftp.example.com", true},
		{"*.example.com", "example.com", false},
		{"ftp*.example.com", "ftp01.example.com", true},
		{"*", "anything", true},
	}
	for _, c := range cases {
		if got := matchWildcardHost(c.pattern, c.host); got != c.want {
			t.Fatalf("matchWildcardHost(%q, %q) = %v, want %v", c.pattern, c.host, got, c.want)
		}
	}
}
