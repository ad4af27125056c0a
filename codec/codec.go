// Package codec implements the fixed-width big-endian integer encodings shared
// by the block, SST, WAL and manifest file formats.
package codec

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrMalformedInput is returned when a buffer is too short to hold the value
// being decoded.
var ErrMalformedInput = errors.New("malformed input")

const (
	// Uint16Size is the encoded width of a 16-bit value.
	Uint16Size = 2
	// Uint64Size is the encoded width of a 64-bit value.
	Uint64Size = 8
)

// AppendUint16 appends v to dst most-significant byte first.
func AppendUint16(dst []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(dst, v)
}

// AppendUint64 appends v to dst most-significant byte first.
func AppendUint64(dst []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(dst, v)
}

// Uint16 decodes the first two bytes of b.
func Uint16(b []byte) (uint16, error) {
	if len(b) < Uint16Size {
		return 0, errors.Wrapf(ErrMalformedInput, "uint16 needs %d bytes, have %d", Uint16Size, len(b))
	}
	return binary.BigEndian.Uint16(b), nil
}

// Uint64 decodes the first eight bytes of b.
func Uint64(b []byte) (uint64, error) {
	if len(b) < Uint64Size {
		return 0, errors.Wrapf(ErrMalformedInput, "uint64 needs %d bytes, have %d", Uint64Size, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
