package vfs

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"foo", "/foo"},
		{"/foo/bar", "/foo/bar"},
		{`\foo\bar`, "/foo/bar"},
		{"/foo//bar///baz", "/foo/bar/baz"},
		{"/foo/./bar", "/foo/bar"},
		{"/foo/../bar", "/bar"},
		{"/../../etc/passwd", "/etc/passwd"},
		{"/..", "/"},
		{"  /foo  ", "/foo"},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeRejectsNullByte(t *testing.T) {
	if _, err := Normalize("/foo\x00bar"); err == nil {
		t.Fatal("expected an error for an embedded null byte")
	}
}

func TestHasPrefixFoldOnlyMatchesSegmentBoundaries(t *testing.T) {
	if !HasPrefixFold("/apps/sub", "/APPS") {
		t.Fatal("expected case-insensitive segment-boundary match")
	}
	if HasPrefixFold("/appstore", "/apps") {
		t.Fatal("/appstore must not match the /apps prefix")
	}
}

func TestJoinAndParentAndBase(t *testing.T) {
	joined, err := Join("/apps", "sub/dir")
	if err != nil || joined != "/apps/sub/dir" {
		t.Fatalf("Join = %q, %v", joined, err)
	}
	if got := Parent("/apps/sub/dir"); got != "/apps/sub" {
		t.Fatalf("Parent = %q", got)
	}
	if got := Base("/apps/sub/dir"); got != "dir" {
		t.Fatalf("Base = %q", got)
	}
	if got := Parent("/apps"); got != "/" {
		t.Fatalf("Parent of top-level = %q, want /", got)
	}
}
