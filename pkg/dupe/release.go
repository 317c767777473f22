// Package dupe implements the persistent binary duplicate-release store:
// append-oriented meta + CRC + index files with an in-memory hot index,
// single reader-writer-lock concurrency, and wildcard search.
//
// File layout, little-endian, length-prefixed (varint) strings:
//
//	meta: a sequence of Release records, appended on every write/update
//	crc:  a sequence of (filename, crc32) entries, appended per update
//	idx:  a snapshot of the UPPER(section)|UPPER(release) -> meta offset map
package dupe

import (
	"strings"
	"time"
)

// Release is identified by (section, name) with case-insensitive keys.
type Release struct {
	Section   string
	Name      string
	Group     string
	TotalBytes int64
	FileCount  int32
	ArchiveCount int32
	FirstSeen    time.Time
	LastUpdated  time.Time

	Nuked         bool
	NukeMultiplier float64
	NukeReason     string

	// CRCs maps archive filename to its CRC32.
	CRCs map[string]uint32
}

// Key returns the canonical UPPER(section)|UPPER(release) index key.
func (r *Release) Key() string {
	return Key(r.Section, r.Name)
}

// Key computes the canonical index key for a (section, release) pair.
func Key(section, release string) string {
	return strings.ToUpper(section) + "|" + strings.ToUpper(release)
}
