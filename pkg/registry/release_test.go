package registry

import (
	"testing"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/pkg/dupe"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

func mustOpenStore(t *testing.T) *dupe.Store {
	t.Helper()
	s, err := dupe.Open(t.TempDir())
	if err != nil {
		t.Fatalf("dupe.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReleaseRegistryToday(t *testing.T) {
	store := mustOpenStore(t)
	now := time.Now().UTC()

	today := &dupe.Release{Section: "APPS", Name: "Today.Release-GRP", FirstSeen: now, LastUpdated: now}
	yesterday := &dupe.Release{Section: "APPS", Name: "Old.Release-GRP", FirstSeen: now.AddDate(0, 0, -1), LastUpdated: now}

	if err := store.Write(today); err != nil {
		t.Fatalf("write today: %v", err)
	}
	if err := store.Write(yesterday); err != nil {
		t.Fatalf("write yesterday: %v", err)
	}

	reg := NewReleaseRegistry(store)
	got := reg.Today()
	if len(got) != 1 || got[0].Name != today.Name {
		t.Fatalf("Today() = %+v, want only %q", got, today.Name)
	}
}

func TestReleaseRegistryZeroDay(t *testing.T) {
	store := mustOpenStore(t)
	sections := identity.NewMemoryStore()
	_ = sections.PutSection(&identity.Section{Name: "0DAY-SECTION", ZeroDay: true})
	_ = sections.PutSection(&identity.Section{Name: "APPS", ZeroDay: false})

	now := time.Now().UTC()
	if err := store.Write(&dupe.Release{Section: "0DAY-SECTION", Name: "A-GRP", FirstSeen: now, LastUpdated: now}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(&dupe.Release{Section: "APPS", Name: "B-GRP", FirstSeen: now, LastUpdated: now}); err != nil {
		t.Fatalf("write: %v", err)
	}

	reg := NewReleaseRegistry(store)
	got := reg.ZeroDay(sections)
	if len(got) != 1 || got[0].Section != "0DAY-SECTION" {
		t.Fatalf("ZeroDay() = %+v, want only the 0DAY-SECTION release", got)
	}
}

func TestReleaseRegistryNukedAndIncomplete(t *testing.T) {
	store := mustOpenStore(t)
	now := time.Now().UTC()

	nuked := &dupe.Release{Section: "APPS", Name: "Nuked-GRP", Nuked: true, FirstSeen: now, LastUpdated: now}
	incomplete := &dupe.Release{
		Section: "APPS", Name: "Incomplete-GRP", FileCount: 3,
		CRCs: map[string]uint32{"a": 1}, FirstSeen: now, LastUpdated: now,
	}
	complete := &dupe.Release{
		Section: "APPS", Name: "Complete-GRP", FileCount: 1,
		CRCs: map[string]uint32{"a": 1}, FirstSeen: now, LastUpdated: now,
	}

	for _, r := range []*dupe.Release{nuked, incomplete, complete} {
		if err := store.Write(r); err != nil {
			t.Fatalf("write %s: %v", r.Name, err)
		}
	}

	reg := NewReleaseRegistry(store)

	nukedList := reg.Nuked()
	if len(nukedList) != 1 || nukedList[0].Name != nuked.Name {
		t.Fatalf("Nuked() = %+v", nukedList)
	}

	incList := reg.Incomplete()
	if len(incList) != 1 || incList[0].Name != incomplete.Name {
		t.Fatalf("Incomplete() = %+v", incList)
	}
}

func TestPreRegistrySaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/pre.json"

	reg := NewPreRegistry()
	reg.Add(PreEntry{Section: "APPS", Release: "Some-GRP", VirtualPath: "/PRE/GRP/Some-GRP", LabelledBy: "alice", Timestamp: time.Now()})

	if err := reg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadPreRegistry(path)
	if err != nil {
		t.Fatalf("LoadPreRegistry: %v", err)
	}
	entry, ok := loaded.Get("/PRE/GRP/Some-GRP")
	if !ok || entry.LabelledBy != "alice" {
		t.Fatalf("loaded entry = %+v, ok=%v", entry, ok)
	}
}
