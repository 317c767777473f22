package dupe

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

const (
	metaFileName = "dupe.meta"
	crcFileName  = "dupe.crc"
	idxFileName  = "dupe.idx"
)

// Store is the append-only, reader-writer-locked dupe database. Every
// Write call appends a fresh meta record and CRC list rather
// than rewriting history; the index file is always
// persisted last so a crash between the meta/crc append and the index
// flush leaves the previous index intact. Open rebuilds the index from
// meta only when the idx file is missing or unreadable; an intact but
// older idx is loaded as it is.
type Store struct {
	mu  sync.RWMutex
	dir string

	metaFile *os.File
	crcFile  *os.File

	// index maps Key(section, release) to the offset of its most recent
	// meta record.
	index map[string]int64
	// order lists index's keys in the order each was first seen, so
	// Search can walk sightings in insertion order rather than sorting.
	order []string
	// hot holds the most recently written Release for each key (filled
	// by Write) so Find and Search don't re-read meta/crc for those.
	hot map[string]*Release
}

// Open opens (creating if absent) the three dupe store files under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("dupe: create store dir: %w", err)
	}

	metaFile, err := os.OpenFile(filepath.Join(dir, metaFileName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("dupe: open meta file: %w", err)
	}
	crcFile, err := os.OpenFile(filepath.Join(dir, crcFileName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		metaFile.Close()
		return nil, fmt.Errorf("dupe: open crc file: %w", err)
	}

	s := &Store{
		dir:      dir,
		metaFile: metaFile,
		crcFile:  crcFile,
		index:    make(map[string]int64),
		hot:      make(map[string]*Release),
	}

	if err := s.loadIndex(); err != nil {
		metaFile.Close()
		crcFile.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying file handles.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err1 := s.metaFile.Close()
	err2 := s.crcFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// loadIndex reads the idx snapshot if present; otherwise it rebuilds the
// index by scanning the meta file from the start (self-healing against a
// crash that occurred before the index was persisted).
func (s *Store) loadIndex() error {
	idxPath := filepath.Join(s.dir, idxFileName)
	f, err := os.Open(idxPath)
	if err == nil {
		defer f.Close()
		index, order, err := readIndex(bufio.NewReader(f))
		if err == nil {
			s.index = index
			s.order = order
			return nil
		}
		// Fall through to rebuild on a corrupt index file.
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("dupe: open index file: %w", err)
	}
	return s.rebuildIndexFromMeta()
}

// countingReader tracks how many bytes have been pulled from the
// underlying reader, which lets rebuildIndexFromMeta recover the logical
// record-start offset despite bufio.Reader's internal read-ahead
// (offset = bytes pulled from source - bytes still buffered).
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *Store) rebuildIndexFromMeta() error {
	if _, err := s.metaFile.Seek(0, io.SeekStart); err != nil {
		return err
	}
	counter := &countingReader{r: s.metaFile}
	r := bufio.NewReader(counter)
	index := make(map[string]int64)
	order := make([]string, 0)

	for {
		offset := counter.n - int64(r.Buffered())
		rel, _, err := readMeta(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("dupe: rebuild index: %w", err)
		}
		key := rel.Key()
		if _, seen := index[key]; !seen {
			order = append(order, key)
		}
		index[key] = offset
	}
	s.index = index
	s.order = order
	return nil
}

func (s *Store) persistIndex() error {
	tmpPath := filepath.Join(s.dir, idxFileName+".tmp")
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("dupe: create index tmp file: %w", err)
	}
	if err := writeIndex(f, s.order, s.index); err != nil {
		f.Close()
		return fmt.Errorf("dupe: write index: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, filepath.Join(s.dir, idxFileName))
}

// Write appends a new release, or a new revision of an existing one
// (matched by Key), and persists the updated index. It is the single
// mutating entry point; both fresh sightings and updates (more files
// seen, nuke applied) go through it.
func (s *Store) Write(r *Release) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	crcOffset, err := s.crcFile.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	crcWriter := bufio.NewWriter(s.crcFile)
	names := make([]string, 0, len(r.CRCs))
	for name := range r.CRCs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeCRCEntry(crcWriter, name, r.CRCs[name]); err != nil {
			return fmt.Errorf("dupe: write crc entry: %w", err)
		}
	}
	if err := crcWriter.Flush(); err != nil {
		return err
	}
	if err := s.crcFile.Sync(); err != nil {
		return err
	}

	metaOffset, err := s.metaFile.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	metaWriter := bufio.NewWriter(s.metaFile)
	if err := writeMeta(metaWriter, r, crcRef{offset: crcOffset, count: int32(len(names))}); err != nil {
		return fmt.Errorf("dupe: write meta record: %w", err)
	}
	if err := metaWriter.Flush(); err != nil {
		return err
	}
	if err := s.metaFile.Sync(); err != nil {
		return err
	}

	key := r.Key()
	if _, seen := s.index[key]; !seen {
		s.order = append(s.order, key)
	}
	s.index[key] = metaOffset
	clone := *r
	clone.CRCs = make(map[string]uint32, len(r.CRCs))
	for k, v := range r.CRCs {
		clone.CRCs[k] = v
	}
	s.hot[key] = &clone

	return s.persistIndex()
}

// Find looks up a release by (section, name), returning (nil, false) if
// no sighting has ever been recorded.
func (s *Store) Find(section, release string) (*Release, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(section, release)
}

func (s *Store) find(section, release string) (*Release, bool) {
	key := Key(section, release)
	if rel, ok := s.hot[key]; ok {
		cloned := *rel
		return &cloned, true
	}
	offset, ok := s.index[key]
	if !ok {
		return nil, false
	}
	rel, err := s.readAt(offset)
	if err != nil {
		return nil, false
	}
	return rel, true
}

func (s *Store) readAt(offset int64) (*Release, error) {
	if _, err := s.metaFile.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	r := bufio.NewReader(s.metaFile)
	rel, ref, err := readMeta(r)
	if err != nil {
		return nil, err
	}
	if ref.count > 0 {
		if _, err := s.crcFile.Seek(ref.offset, io.SeekStart); err != nil {
			return nil, err
		}
		cr := bufio.NewReader(s.crcFile)
		for i := int32(0); i < ref.count; i++ {
			name, crc, err := readCRCEntry(cr)
			if err != nil {
				return nil, err
			}
			rel.CRCs[name] = crc
		}
	}
	return rel, nil
}

// wildcardToRegexp translates a dupe search pattern (`*` any run, `?` any
// single char) into a case-insensitive anchored regexp.
func wildcardToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Search returns up to limit releases whose name matches the wildcard
// pattern, in insertion order (the order each release was first sighted).
// limit <= 0 means unbounded.
func (s *Store) Search(pattern string, limit int) ([]*Release, error) {
	re, err := wildcardToRegexp(pattern)
	if err != nil {
		return nil, fmt.Errorf("dupe: invalid search pattern %q: %w", pattern, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Release
	for _, key := range s.order {
		parts := strings.SplitN(key, "|", 2)
		name := key
		if len(parts) == 2 {
			name = parts[1]
		}
		if !re.MatchString(name) {
			continue
		}
		rel, ok := s.hot[key]
		if !ok {
			offset := s.index[key]
			loaded, err := s.readAt(offset)
			if err != nil {
				continue
			}
			rel = loaded
		}
		cloned := *rel
		results = append(results, &cloned)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}
