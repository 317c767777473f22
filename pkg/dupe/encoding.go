package dupe

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/pkg/wire"
)

// crcRef locates a release's CRC list within the crc file.
type crcRef struct {
	offset int64
	count  int32
}

// writeMeta appends a single meta record to w and returns only an error,
// not the offset; the caller is responsible for tracking the offset it was written at
// (os.File.Seek(0, io.SeekCurrent) before the call).
func writeMeta(w io.Writer, r *Release, crc crcRef) error {
	if err := wire.WriteString(w, r.Section); err != nil {
		return err
	}
	if err := wire.WriteString(w, r.Name); err != nil {
		return err
	}
	if err := wire.WriteString(w, r.Group); err != nil {
		return err
	}
	if err := wire.WriteInt64(w, r.TotalBytes); err != nil {
		return err
	}
	if err := wire.WriteInt32(w, r.FileCount); err != nil {
		return err
	}
	if err := wire.WriteInt32(w, r.ArchiveCount); err != nil {
		return err
	}
	if err := wire.WriteInt64(w, r.FirstSeen.Unix()); err != nil {
		return err
	}
	if err := wire.WriteInt64(w, r.LastUpdated.Unix()); err != nil {
		return err
	}
	nuked := byte(0)
	if r.Nuked {
		nuked = 1
	}
	if err := wire.WriteByte(w, nuked); err != nil {
		return err
	}
	if err := wire.WriteFloat64(w, r.NukeMultiplier); err != nil {
		return err
	}
	if err := wire.WriteString(w, r.NukeReason); err != nil {
		return err
	}
	if err := wire.WriteInt64(w, crc.offset); err != nil {
		return err
	}
	return wire.WriteInt32(w, crc.count)
}

// readMeta reads one meta record from r.
func readMeta(r *bufio.Reader) (*Release, crcRef, error) {
	rel := &Release{CRCs: make(map[string]uint32)}
	var err error

	if rel.Section, err = wire.ReadString(r); err != nil {
		return nil, crcRef{}, fmt.Errorf("read section: %w", err)
	}
	if rel.Name, err = wire.ReadString(r); err != nil {
		return nil, crcRef{}, fmt.Errorf("read name: %w", err)
	}
	if rel.Group, err = wire.ReadString(r); err != nil {
		return nil, crcRef{}, fmt.Errorf("read group: %w", err)
	}
	if rel.TotalBytes, err = wire.ReadInt64(r); err != nil {
		return nil, crcRef{}, fmt.Errorf("read total bytes: %w", err)
	}
	if rel.FileCount, err = wire.ReadInt32(r); err != nil {
		return nil, crcRef{}, fmt.Errorf("read file count: %w", err)
	}
	if rel.ArchiveCount, err = wire.ReadInt32(r); err != nil {
		return nil, crcRef{}, fmt.Errorf("read archive count: %w", err)
	}
	firstSeen, err := wire.ReadInt64(r)
	if err != nil {
		return nil, crcRef{}, fmt.Errorf("read first seen: %w", err)
	}
	rel.FirstSeen = time.Unix(firstSeen, 0).UTC()
	lastUpdated, err := wire.ReadInt64(r)
	if err != nil {
		return nil, crcRef{}, fmt.Errorf("read last updated: %w", err)
	}
	rel.LastUpdated = time.Unix(lastUpdated, 0).UTC()
	nuked, err := wire.ReadByte(r)
	if err != nil {
		return nil, crcRef{}, fmt.Errorf("read nuked flag: %w", err)
	}
	rel.Nuked = nuked != 0
	if rel.NukeMultiplier, err = wire.ReadFloat64(r); err != nil {
		return nil, crcRef{}, fmt.Errorf("read nuke multiplier: %w", err)
	}
	if rel.NukeReason, err = wire.ReadString(r); err != nil {
		return nil, crcRef{}, fmt.Errorf("read nuke reason: %w", err)
	}
	var ref crcRef
	if ref.offset, err = wire.ReadInt64(r); err != nil {
		return nil, crcRef{}, fmt.Errorf("read crc offset: %w", err)
	}
	if ref.count, err = wire.ReadInt32(r); err != nil {
		return nil, crcRef{}, fmt.Errorf("read crc count: %w", err)
	}
	return rel, ref, nil
}

// writeCRCEntry appends one (filename, crc32) entry to w.
func writeCRCEntry(w io.Writer, filename string, crc uint32) error {
	if err := wire.WriteString(w, filename); err != nil {
		return err
	}
	return wire.WriteUint32(w, crc)
}

// readCRCEntry reads one (filename, crc32) entry from r.
func readCRCEntry(r *bufio.Reader) (string, uint32, error) {
	name, err := wire.ReadString(r)
	if err != nil {
		return "", 0, err
	}
	crc, err := wire.ReadUint32(r)
	if err != nil {
		return "", 0, err
	}
	return name, crc, nil
}

// writeIndex writes the full index: count then repeated (key, offset), in
// the given key order. order is expected to list every key in index exactly
// once; the order itself is what lets readIndex recover insertion order
// without re-scanning meta.
func writeIndex(w io.Writer, order []string, index map[string]int64) error {
	if err := wire.WriteInt32(w, int32(len(order))); err != nil {
		return err
	}
	for _, key := range order {
		if err := wire.WriteString(w, key); err != nil {
			return err
		}
		if err := wire.WriteInt64(w, index[key]); err != nil {
			return err
		}
	}
	return nil
}

// readIndex reads the full index written by writeIndex, returning both the
// offset map and the keys in the order they were written (their original
// insertion order).
func readIndex(r *bufio.Reader) (map[string]int64, []string, error) {
	count, err := wire.ReadInt32(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read index count: %w", err)
	}
	index := make(map[string]int64, count)
	order := make([]string, 0, count)
	for i := int32(0); i < count; i++ {
		key, err := wire.ReadString(r)
		if err != nil {
			return nil, nil, fmt.Errorf("read index key %d: %w", i, err)
		}
		offset, err := wire.ReadInt64(r)
		if err != nil {
			return nil, nil, fmt.Errorf("read index offset %d: %w", i, err)
		}
		index[key] = offset
		order = append(order, key)
	}
	return index, order, nil
}
