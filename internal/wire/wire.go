// Package wire frames stored count snapshots with the namespace generation
// they were written under and the filter identity they belong to.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt     = errors.New("listcount: corrupt entry")
	ErrIdentityLen = errors.New("listcount: identity too long")
	magic4         = [...]byte{'L', 'C', 'N', 'T'}
)

const hdrLen = 4 + 1 + 8 + 2

// Record is one stored snapshot.
type Record struct {
	Gen      uint64
	Identity string
	Payload  []byte
}

// Encode lays out:
//
//	magic(4) | ver(1) | gen(u64 be) | idLen(u16 be) | identity | vlen(u32 be) | payload(vlen)
func Encode(r Record) ([]byte, error) {
	if len(r.Identity) > 0xFFFF {
		return nil, ErrIdentityLen
	}
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(r.Identity) + 4 + len(r.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], r.Gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(r.Identity)))
	buf.Write(u2[:])
	buf.WriteString(r.Identity)

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Payload)))
	buf.Write(u4[:])
	buf.Write(r.Payload)
	return buf.Bytes(), nil
}

// Decode parses b. The returned Payload aliases b.
func Decode(b []byte) (Record, error) {
	if len(b) < hdrLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return Record{}, ErrCorrupt
	}
	off := 5

	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	idLen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if idLen > len(b)-off {
		return Record{}, ErrCorrupt
	}
	id := string(b[off : off+idLen])
	off += idLen

	if off+4 > len(b) {
		return Record{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// exact fit: trailing bytes are corruption too
	if vlen != len(b)-off {
		return Record{}, ErrCorrupt
	}

	return Record{Gen: gen, Identity: id, Payload: b[off : off+vlen]}, nil
}
