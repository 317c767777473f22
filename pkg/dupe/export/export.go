// Package export implements the scene dupe export/import interchange
// format: a flat binary snapshot of
// releases used to exchange dupe data with other daemons, independent of
// the on-disk meta/crc/idx layout pkg/dupe uses internally.
package export

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/pkg/dupe"
	"github.com/m4mm0n/amFTPd-sub003/pkg/wire"
)

// magic identifies the format; version is bumped on incompatible layout changes.
const (
	magic          = "AMDP"
	formatVersion  = 1
)

// Entry is one release record in the export stream.
type Entry struct {
	Section        string
	Release        string
	Group          string
	ReleaseDate    time.Time
	TotalBytes     int64
	FileCount      int32
	Nuked          bool
	NukeReason     string
	NukeMultiplier float64
}

// FromRelease projects a dupe.Release into its export representation.
func FromRelease(r *dupe.Release) Entry {
	return Entry{
		Section:        r.Section,
		Release:        r.Name,
		Group:          r.Group,
		ReleaseDate:    r.FirstSeen,
		TotalBytes:     r.TotalBytes,
		FileCount:      r.FileCount,
		Nuked:          r.Nuked,
		NukeReason:     r.NukeReason,
		NukeMultiplier: r.NukeMultiplier,
	}
}

// ToRelease expands an Entry back into a dupe.Release (CRCs are not part
// of the export format and are left empty; a re-import does not restore
// per-archive CRC data, only the release-level metadata).
func (e Entry) ToRelease() *dupe.Release {
	return &dupe.Release{
		Section:        e.Section,
		Name:           e.Release,
		Group:          e.Group,
		FirstSeen:      e.ReleaseDate,
		LastUpdated:    e.ReleaseDate,
		TotalBytes:     e.TotalBytes,
		FileCount:      e.FileCount,
		Nuked:          e.Nuked,
		NukeReason:     e.NukeReason,
		NukeMultiplier: e.NukeMultiplier,
		CRCs:           map[string]uint32{},
	}
}

// Write encodes entries as an AMDP v1 stream: 4-byte magic, u8 version,
// i32 count, then one fixed-shape record per entry.
func Write(w io.Writer, entries []Entry) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return fmt.Errorf("export: write magic: %w", err)
	}
	if err := wire.WriteByte(w, formatVersion); err != nil {
		return fmt.Errorf("export: write version: %w", err)
	}
	if err := wire.WriteInt32(w, int32(len(entries))); err != nil {
		return fmt.Errorf("export: write count: %w", err)
	}
	for i, e := range entries {
		if err := writeEntry(w, e); err != nil {
			return fmt.Errorf("export: write entry %d: %w", i, err)
		}
	}
	return nil
}

func writeEntry(w io.Writer, e Entry) error {
	if err := wire.WriteString(w, e.Section); err != nil {
		return err
	}
	if err := wire.WriteString(w, e.Release); err != nil {
		return err
	}
	if err := wire.WriteString(w, e.Group); err != nil {
		return err
	}
	if err := wire.WriteInt64(w, e.ReleaseDate.Unix()); err != nil {
		return err
	}
	if err := wire.WriteInt64(w, e.TotalBytes); err != nil {
		return err
	}
	if err := wire.WriteInt32(w, e.FileCount); err != nil {
		return err
	}
	nuked := byte(0)
	if e.Nuked {
		nuked = 1
	}
	if err := wire.WriteByte(w, nuked); err != nil {
		return err
	}
	if err := wire.WriteString(w, e.NukeReason); err != nil {
		return err
	}
	return wire.WriteFloat64(w, e.NukeMultiplier)
}

// Read decodes an AMDP stream produced by Write, verifying the magic and
// version before reading the entries.
func Read(r io.Reader) ([]Entry, error) {
	br := bufio.NewReader(r)

	var magicBuf [4]byte
	if _, err := io.ReadFull(br, magicBuf[:]); err != nil {
		return nil, fmt.Errorf("export: read magic: %w", err)
	}
	if string(magicBuf[:]) != magic {
		return nil, fmt.Errorf("export: bad magic %q, want %q", magicBuf, magic)
	}

	version, err := wire.ReadByte(br)
	if err != nil {
		return nil, fmt.Errorf("export: read version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("export: unsupported version %d, want %d", version, formatVersion)
	}

	count, err := wire.ReadInt32(br)
	if err != nil {
		return nil, fmt.Errorf("export: read count: %w", err)
	}

	entries := make([]Entry, 0, count)
	for i := int32(0); i < count; i++ {
		e, err := readEntry(br)
		if err != nil {
			return nil, fmt.Errorf("export: read entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func readEntry(r *bufio.Reader) (Entry, error) {
	var e Entry
	var err error

	if e.Section, err = wire.ReadString(r); err != nil {
		return e, fmt.Errorf("read section: %w", err)
	}
	if e.Release, err = wire.ReadString(r); err != nil {
		return e, fmt.Errorf("read release: %w", err)
	}
	if e.Group, err = wire.ReadString(r); err != nil {
		return e, fmt.Errorf("read group: %w", err)
	}
	releaseDate, err := wire.ReadInt64(r)
	if err != nil {
		return e, fmt.Errorf("read release date: %w", err)
	}
	e.ReleaseDate = time.Unix(releaseDate, 0).UTC()
	if e.TotalBytes, err = wire.ReadInt64(r); err != nil {
		return e, fmt.Errorf("read total bytes: %w", err)
	}
	if e.FileCount, err = wire.ReadInt32(r); err != nil {
		return e, fmt.Errorf("read file count: %w", err)
	}
	nuked, err := wire.ReadByte(r)
	if err != nil {
		return e, fmt.Errorf("read nuked flag: %w", err)
	}
	e.Nuked = nuked != 0
	if e.NukeReason, err = wire.ReadString(r); err != nil {
		return e, fmt.Errorf("read nuke reason: %w", err)
	}
	if e.NukeMultiplier, err = wire.ReadFloat64(r); err != nil {
		return e, fmt.Errorf("read nuke multiplier: %w", err)
	}
	return e, nil
}
