// Package wire provides the small binary encoding helpers shared by the
// dupe store and the scene dupe export format: little-endian fixed-width
// integers plus LEB128-varint length-prefixed strings.
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// WriteString writes a varint-length-prefixed UTF-8 string.
//
// Format: [uvarint length][data bytes]. This is the "standard
// length-prefixed UTF-8" encoding named in the dupe store's on-disk
// format, distinct from the fixed 4-byte-aligned strings used by RPC/XDR
// wire formats elsewhere in the ecosystem.
func WriteString(w io.Writer, s string) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(s)))
	if _, err := w.Write(buf[:n]); err != nil {
		return fmt.Errorf("write string length: %w", err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write string data: %w", err)
	}
	return nil
}

// ReadString reads a varint-length-prefixed UTF-8 string written by WriteString.
func ReadString(r *bufio.Reader) (string, error) {
	length, err := binary.ReadUvarint(r)
	if err != nil {
		return "", fmt.Errorf("read string length: %w", err)
	}
	if length > maxStringLength {
		return "", fmt.Errorf("string length %d exceeds maximum %d", length, maxStringLength)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read string data: %w", err)
	}
	return string(buf), nil
}

// maxStringLength bounds a single decoded string to guard against a
// corrupt length prefix causing an unbounded allocation.
const maxStringLength = 1 << 20

// WriteInt64 writes a little-endian int64.
func WriteInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadInt64 reads a little-endian int64.
func ReadInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// WriteInt32 writes a little-endian int32.
func WriteInt32(w io.Writer, v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadInt32 reads a little-endian int32.
func ReadInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// WriteUint32 writes a little-endian uint32 (used for CRC32 values).
func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ReadUint32 reads a little-endian uint32.
func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// WriteFloat64 writes a little-endian IEEE-754 double.
func WriteFloat64(w io.Writer, v float64) error {
	return WriteUint64(w, math.Float64bits(v))
}

// ReadFloat64 reads a little-endian IEEE-754 double.
func ReadFloat64(r io.Reader) (float64, error) {
	bits, err := ReadUint64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// WriteUint64 writes a little-endian uint64.
func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ReadUint64 reads a little-endian uint64.
func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteByte writes a single byte (used for boolean flags in the on-disk format).
func WriteByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// ReadByte reads a single byte.
func ReadByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
