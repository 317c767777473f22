package dupe

import (
	"testing"
	"time"
)

func TestWriteReopenFind(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	rel := &Release{
		Section:      "APPS",
		Name:         "Some.Release-GROUP",
		Group:        "GROUP",
		TotalBytes:   123456789,
		FileCount:    12,
		ArchiveCount: 3,
		FirstSeen:    time.Unix(1700000000, 0).UTC(),
		LastUpdated:  time.Unix(1700000500, 0).UTC(),
		CRCs: map[string]uint32{
			"group-s01.rar": 0xDEADBEEF,
			"group-s02.rar": 0xCAFEBABE,
		},
	}
	if err := s.Write(rel); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Find("apps", "some.release-group")
	if !ok {
		t.Fatal("expected to find release by case-insensitive key after reopen")
	}
	if got.Name != rel.Name || got.Group != rel.Group {
		t.Fatalf("got %+v, want name/group to match %+v", got, rel)
	}
	if got.TotalBytes != rel.TotalBytes || got.FileCount != rel.FileCount {
		t.Fatalf("got %+v, counts mismatch vs %+v", got, rel)
	}
	if len(got.CRCs) != 2 || got.CRCs["group-s01.rar"] != 0xDEADBEEF {
		t.Fatalf("CRCs not round-tripped: %+v", got.CRCs)
	}
}

func TestWriteAppendsRevision(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	rel := &Release{Section: "APPS", Name: "Rel", FileCount: 1, CRCs: map[string]uint32{"a": 1}}
	if err := s.Write(rel); err != nil {
		t.Fatalf("first write: %v", err)
	}

	rel.FileCount = 2
	rel.Nuked = true
	rel.NukeReason = "bad rip"
	if err := s.Write(rel); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, ok := s.Find("APPS", "Rel")
	if !ok {
		t.Fatal("expected to find release")
	}
	if got.FileCount != 2 || !got.Nuked || got.NukeReason != "bad rip" {
		t.Fatalf("expected latest revision, got %+v", got)
	}
}

func TestSearchWildcard(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	for _, name := range []string{"Some.Movie.2024-GROUP", "Some.Show.S01-GROUP", "Other.Thing-CREW"} {
		if err := s.Write(&Release{Section: "MOVIES", Name: name}); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
	}

	results, err := s.Search("some.*", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(results), results)
	}

	limited, err := s.Search("*", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to cap results at 1, got %d", len(limited))
	}
}

func TestSearchPreservesInsertionOrder(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	// Alphabetically these would sort Xray, Yankee, Zulu; write them out
	// of order to prove Search doesn't re-sort them.
	names := []string{"Zulu.Release-GROUP", "Xray.Release-GROUP", "Yankee.Release-GROUP"}
	for _, name := range names {
		if err := s.Write(&Release{Section: "APPS", Name: name}); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
	}

	results, err := s.Search("*", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != len(names) {
		t.Fatalf("expected %d matches, got %d: %+v", len(names), len(results), results)
	}
	for i, want := range names {
		if results[i].Name != want {
			t.Fatalf("result %d = %q, want %q (insertion order not preserved)", i, results[i].Name, want)
		}
	}
}

func TestSearchPreservesInsertionOrderAfterReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	names := []string{"Zulu.Release-GROUP", "Xray.Release-GROUP", "Yankee.Release-GROUP"}
	for _, name := range names {
		if err := s.Write(&Release{Section: "APPS", Name: name}); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	results, err := reopened.Search("*", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != len(names) {
		t.Fatalf("expected %d matches, got %d: %+v", len(names), len(results), results)
	}
	for i, want := range names {
		if results[i].Name != want {
			t.Fatalf("result %d = %q, want %q (insertion order lost across reopen)", i, results[i].Name, want)
		}
	}
}
