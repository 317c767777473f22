// Package registry implements the in-memory release/pre indices that sit
// behind the VFS release, pre, and group providers.
package registry

import (
	"sort"
	"strings"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/pkg/dupe"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

// ReleaseRegistry answers the listing-oriented queries the release VFS
// provider needs (section roots, /TODAY, /0DAY, /TODAY-<section>,
// /NUKED, /INCOMPLETE, /ARCHIVE) by scanning the dupe store's index.
// It does not duplicate the dupe store's persistence; it is a read-side
// view over it.
type ReleaseRegistry struct {
	store *dupe.Store
	now   func() time.Time
}

// NewReleaseRegistry wraps an open dupe store.
func NewReleaseRegistry(store *dupe.Store) *ReleaseRegistry {
	return &ReleaseRegistry{store: store, now: time.Now}
}

// Find looks up a single release by (section, name).
func (r *ReleaseRegistry) Find(section, name string) (*dupe.Release, bool) {
	return r.store.Find(section, name)
}

// BySection returns every release recorded under section.
func (r *ReleaseRegistry) BySection(section string) []*dupe.Release {
	all, _ := r.store.Search("*", 0)
	var out []*dupe.Release
	for _, rel := range all {
		if strings.EqualFold(rel.Section, section) {
			out = append(out, rel)
		}
	}
	sortByLastUpdatedDesc(out)
	return out
}

// Today returns releases first seen on the current UTC day across every
// section (the /TODAY virtual listing).
func (r *ReleaseRegistry) Today() []*dupe.Release {
	return r.firstSeenToday(nil)
}

// TodaySection returns releases first seen today within a single section
// (the /TODAY-<section> virtual listing).
func (r *ReleaseRegistry) TodaySection(section string) []*dupe.Release {
	return r.firstSeenToday(func(rel *dupe.Release) bool {
		return strings.EqualFold(rel.Section, section)
	})
}

// ZeroDay returns today's releases restricted to sections flagged
// ZeroDay in the section store (the /0DAY virtual listing). A release
// whose section record no longer exists is excluded conservatively.
func (r *ReleaseRegistry) ZeroDay(sections identity.Store) []*dupe.Release {
	return r.firstSeenToday(func(rel *dupe.Release) bool {
		sec, err := sections.GetSection(rel.Section)
		return err == nil && sec.ZeroDay
	})
}

func (r *ReleaseRegistry) firstSeenToday(filter func(*dupe.Release) bool) []*dupe.Release {
	all, _ := r.store.Search("*", 0)
	year, month, day := r.now().UTC().Date()

	var out []*dupe.Release
	for _, rel := range all {
		ry, rm, rd := rel.FirstSeen.UTC().Date()
		if ry != year || rm != month || rd != day {
			continue
		}
		if filter != nil && !filter(rel) {
			continue
		}
		out = append(out, rel)
	}
	sortByLastUpdatedDesc(out)
	return out
}

// Nuked returns every release currently marked nuked (the /NUKED listing).
func (r *ReleaseRegistry) Nuked() []*dupe.Release {
	all, _ := r.store.Search("*", 0)
	var out []*dupe.Release
	for _, rel := range all {
		if rel.Nuked {
			out = append(out, rel)
		}
	}
	sortByLastUpdatedDesc(out)
	return out
}

// Incomplete returns releases whose recorded CRC count is still short of
// their declared file count — a race still in progress (the /INCOMPLETE
// listing).
func (r *ReleaseRegistry) Incomplete() []*dupe.Release {
	all, _ := r.store.Search("*", 0)
	var out []*dupe.Release
	for _, rel := range all {
		if int32(len(rel.CRCs)) < rel.FileCount {
			out = append(out, rel)
		}
	}
	sortByLastUpdatedDesc(out)
	return out
}

// Archive returns every known release across all sections and time,
// newest first (the /ARCHIVE listing).
func (r *ReleaseRegistry) Archive() []*dupe.Release {
	all, _ := r.store.Search("*", 0)
	sortByLastUpdatedDesc(all)
	return all
}

func sortByLastUpdatedDesc(releases []*dupe.Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		return releases[i].LastUpdated.After(releases[j].LastUpdated)
	})
}
