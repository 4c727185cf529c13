// Package codec is the concrete stand-in for the serialization collaborator
// the persistence core treats as external: encode a structured value into a
// self-describing, checksum-trailed byte string, and reverse the process,
// verifying the checksum before ever handing back a value that isn't what
// was written.
package codec

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/golang/snappy"
)

// Value is the structured, in-memory representation of what gets persisted.
// Type is an opaque application tag (e.g. distinguishing a string from a
// hash from a list) carried through unchanged.
type Value struct {
	Type byte
	Data []byte
}

var (
	// ErrCorrupt is returned by Decode when the checksum trailer doesn't
	// match the payload. Callers on the read path are expected to treat
	// this the same as "not found", not as a hard error.
	ErrCorrupt = errors.New("codec: corrupt record")
	// ErrTooShort is returned when a buffer can't possibly contain a
	// valid header and checksum trailer.
	ErrTooShort = errors.New("codec: buffer too short")
)

const headerLen = 1  // type byte
const trailerLen = 4 // crc32 checksum

// Encode produces a self-describing byte string: [type][snappy-compressed
// data][crc32 checksum]. The checksum covers the type byte and the
// compressed payload, so any bit flip anywhere in the record is caught by
// Verify without needing to decompress first.
func Encode(v Value) []byte {
	compressed := snappy.Encode(nil, v.Data)
	buf := make([]byte, 0, headerLen+len(compressed)+trailerLen)
	buf = append(buf, v.Type)
	buf = append(buf, compressed...)
	sum := crc32.ChecksumIEEE(buf)
	var sumBytes [trailerLen]byte
	binary.BigEndian.PutUint32(sumBytes[:], sum)
	buf = append(buf, sumBytes[:]...)
	return buf
}

// Verify reports whether b carries a checksum consistent with its payload,
// without decompressing it.
func Verify(b []byte) bool {
	if len(b) < 1+trailerLen {
		return false
	}
	body := b[:len(b)-trailerLen]
	want := binary.BigEndian.Uint32(b[len(b)-trailerLen:])
	return crc32.ChecksumIEEE(body) == want
}

// Decode verifies and reverses Encode. A corrupt record is reported via
// ErrCorrupt; the caller's read path is expected to treat that as absence.
func Decode(b []byte) (Value, error) {
	if len(b) < 1+trailerLen {
		return Value{}, ErrTooShort
	}
	if !Verify(b) {
		return Value{}, ErrCorrupt
	}
	typ := b[0]
	compressed := b[1 : len(b)-trailerLen]
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return Value{}, ErrCorrupt
	}
	return Value{Type: typ, Data: data}, nil
}
