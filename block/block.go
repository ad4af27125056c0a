// Package block implements the physical unit of an SST: a payload of
// length-prefixed entries followed by an offset table and a two-byte footer
// holding the entry count. Entries are key-ordered; lookups binary-search the
// offsets.
package block

import (
	"bytes"
	"sort"

	"github.com/Priyanshu23/FlintDBGo/codec"
	"github.com/pkg/errors"
)

// ErrOutOfBounds is returned for an entry index beyond the offset table.
var ErrOutOfBounds = errors.New("entry index out of bounds")

const (
	keyLenSize   = codec.Uint16Size
	valueLenSize = codec.Uint16Size
	offsetSize   = codec.Uint16Size
	footerSize   = codec.Uint16Size
)

// Entry is one key/value pair inside a block.
type Entry struct {
	Key   []byte
	Value []byte
}

// Block is a decoded (or freshly built) block: the entry payload plus the
// offset of each entry's start.
type Block struct {
	data    []byte
	offsets []uint16
}

// Len returns the number of entries.
func (b *Block) Len() int {
	return len(b.offsets)
}

// Encode lays the block out as payload | offsets | entry count, everything
// big-endian.
func (b *Block) Encode() []byte {
	encoded := make([]byte, 0, len(b.data)+len(b.offsets)*offsetSize+footerSize)
	encoded = append(encoded, b.data...)
	for _, offset := range b.offsets {
		encoded = codec.AppendUint16(encoded, offset)
	}
	return codec.AppendUint16(encoded, uint16(len(b.offsets)))
}

// Decode reverses Encode. The footer is read first, then the offset table
// working back from it; whatever precedes the offsets is the payload.
func Decode(data []byte) (*Block, error) {
	count, err := codec.Uint16(data[max(0, len(data)-footerSize):])
	if err != nil {
		return nil, errors.Wrap(err, "block footer")
	}

	offsetsStart := len(data) - footerSize - int(count)*offsetSize
	if offsetsStart < 0 {
		return nil, errors.Wrapf(codec.ErrMalformedInput,
			"block of %d bytes cannot hold %d offsets", len(data), count)
	}

	offsets := make([]uint16, count)
	for i := range offsets {
		offset, err := codec.Uint16(data[offsetsStart+i*offsetSize:])
		if err != nil {
			return nil, errors.Wrap(err, "block offset table")
		}
		if int(offset) > offsetsStart {
			return nil, errors.Wrapf(codec.ErrMalformedInput,
				"offset %d beyond payload of %d bytes", offset, offsetsStart)
		}
		offsets[i] = offset
	}

	return &Block{data: data[:offsetsStart], offsets: offsets}, nil
}

// Entry returns the idx-th entry.
func (b *Block) Entry(idx int) (Entry, error) {
	if idx < 0 || idx >= len(b.offsets) {
		return Entry{}, errors.Wrapf(ErrOutOfBounds, "index %d of %d entries", idx, len(b.offsets))
	}

	pos := int(b.offsets[idx])
	key, next, err := b.slice(pos)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "entry %d key", idx)
	}
	value, _, err := b.slice(next)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "entry %d value", idx)
	}

	return Entry{Key: key, Value: value}, nil
}

// slice reads one u16-length-prefixed byte string at pos in the payload.
func (b *Block) slice(pos int) ([]byte, int, error) {
	if pos+keyLenSize > len(b.data) {
		return nil, 0, errors.Wrapf(codec.ErrMalformedInput, "length prefix at %d", pos)
	}
	n, err := codec.Uint16(b.data[pos:])
	if err != nil {
		return nil, 0, err
	}
	end := pos + keyLenSize + int(n)
	if end > len(b.data) {
		return nil, 0, errors.Wrapf(codec.ErrMalformedInput, "%d payload bytes at %d", n, pos)
	}
	return b.data[pos+keyLenSize : end], end, nil
}

// Get returns the value stored for key, binary-searching the ordered entries.
func (b *Block) Get(key []byte) ([]byte, bool, error) {
	var searchErr error
	idx := sort.Search(len(b.offsets), func(i int) bool {
		entry, err := b.Entry(i)
		if err != nil {
			searchErr = err
			return true
		}
		return bytes.Compare(entry.Key, key) >= 0
	})
	if searchErr != nil {
		return nil, false, searchErr
	}
	if idx == len(b.offsets) {
		return nil, false, nil
	}

	entry, err := b.Entry(idx)
	if err != nil {
		return nil, false, err
	}
	if !bytes.Equal(entry.Key, key) {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// FirstKey returns the key of the first entry, or nil for an empty block.
func (b *Block) FirstKey() []byte {
	if len(b.offsets) == 0 {
		return nil
	}
	entry, err := b.Entry(0)
	if err != nil {
		return nil
	}
	return entry.Key
}

// LastKey returns the key of the last entry, or nil for an empty block.
func (b *Block) LastKey() []byte {
	if len(b.offsets) == 0 {
		return nil
	}
	entry, err := b.Entry(len(b.offsets) - 1)
	if err != nil {
		return nil
	}
	return entry.Key
}
