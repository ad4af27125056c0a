// Package sst implements the sorted string table: an immutable on-disk file
// of key-ordered entries arranged in blocks, with per-block metadata in a
// fixed trailer and a bloom-filter sidecar for cheap negative lookups.
package sst

import (
	"github.com/Priyanshu23/FlintDBGo/codec"
	"github.com/pkg/errors"
)

// Metadata describes one block: where it sits in the file, its encoded size,
// and the key range it covers.
type Metadata struct {
	Offset   uint64
	Size     uint64
	FirstKey []byte
	LastKey  []byte
}

// Encode lays the metadata out as
// offset_u64 | size_u64 | first_key_len_u16 | first_key | last_key_len_u16 | last_key.
func (m Metadata) Encode() []byte {
	buf := make([]byte, 0, 2*codec.Uint64Size+2*codec.Uint16Size+len(m.FirstKey)+len(m.LastKey))
	buf = codec.AppendUint64(buf, m.Offset)
	buf = codec.AppendUint64(buf, m.Size)
	buf = codec.AppendUint16(buf, uint16(len(m.FirstKey)))
	buf = append(buf, m.FirstKey...)
	buf = codec.AppendUint16(buf, uint16(len(m.LastKey)))
	buf = append(buf, m.LastKey...)
	return buf
}

// decodeMetadata consumes one encoded Metadata from the front of buf and
// returns the remainder.
func decodeMetadata(buf []byte) (Metadata, []byte, error) {
	var m Metadata
	var err error

	if m.Offset, err = codec.Uint64(buf); err != nil {
		return Metadata{}, nil, errors.Wrap(err, "block offset")
	}
	buf = buf[codec.Uint64Size:]

	if m.Size, err = codec.Uint64(buf); err != nil {
		return Metadata{}, nil, errors.Wrap(err, "block size")
	}
	buf = buf[codec.Uint64Size:]

	if m.FirstKey, buf, err = decodeKey(buf); err != nil {
		return Metadata{}, nil, errors.Wrap(err, "first key")
	}
	if m.LastKey, buf, err = decodeKey(buf); err != nil {
		return Metadata{}, nil, errors.Wrap(err, "last key")
	}

	return m, buf, nil
}

func decodeKey(buf []byte) ([]byte, []byte, error) {
	n, err := codec.Uint16(buf)
	if err != nil {
		return nil, nil, err
	}
	buf = buf[codec.Uint16Size:]
	if int(n) > len(buf) {
		return nil, nil, errors.Wrapf(codec.ErrMalformedInput, "key of %d bytes, %d remain", n, len(buf))
	}
	return buf[:n], buf[n:], nil
}
