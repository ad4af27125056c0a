package block

import "github.com/Priyanshu23/FlintDBGo/codec"

// Builder accumulates entries into a block. Callers append keys in
// non-decreasing order; the builder does not re-sort.
type Builder struct {
	data    []byte
	offsets []uint16
	size    int
}

// NewBuilder returns an empty builder. Its Size starts at the footer width.
func NewBuilder() *Builder {
	return &Builder{size: footerSize}
}

// AddEntry appends key_len | key | value_len | value to the payload and
// records the entry's start offset.
func (b *Builder) AddEntry(key, value []byte) {
	b.offsets = append(b.offsets, uint16(len(b.data)))

	b.data = codec.AppendUint16(b.data, uint16(len(key)))
	b.data = append(b.data, key...)
	b.data = codec.AppendUint16(b.data, uint16(len(value)))
	b.data = append(b.data, value...)

	b.size += keyLenSize + len(key) + valueLenSize + len(value) + offsetSize
}

// Size returns the number of bytes the block would occupy if finalized now.
func (b *Builder) Size() int {
	return b.size
}

// Empty reports whether any entry has been added.
func (b *Builder) Empty() bool {
	return len(b.offsets) == 0
}

// Build hands the accumulated payload and offsets over to a Block. The
// builder must not be reused afterwards.
func (b *Builder) Build() *Block {
	return &Block{data: b.data, offsets: b.offsets}
}
