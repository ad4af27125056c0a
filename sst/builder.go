package sst

import (
	"fmt"
	"path/filepath"

	"github.com/Priyanshu23/FlintDBGo/block"
	"github.com/Priyanshu23/FlintDBGo/codec"
	"github.com/Priyanshu23/FlintDBGo/fileio"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/pkg/errors"
)

// DefaultBlockSize caps one block's encoded size unless the caller says
// otherwise.
const DefaultBlockSize = 1024

// falsePositiveRate sizes the per-table bloom filter.
const falsePositiveRate = 0.01

// TablePath returns the canonical SST file path for a table id.
func TablePath(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("sst_%d", id))
}

// Builder streams key-ordered entries into a new SST file. Callers add keys
// in non-decreasing order; the builder does not re-sort.
type Builder struct {
	writer    *fileio.Writer
	path      string
	blockSize int
	current   *block.Builder
	metas     []Metadata
	keys      [][]byte
	finished  bool
}

// NewBuilder opens path for writing. blockSize <= 0 selects DefaultBlockSize.
func NewBuilder(path string, blockSize int) (*Builder, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	writer, err := fileio.OpenWriter(path)
	if err != nil {
		return nil, errors.Wrap(err, "open sst for writing")
	}

	return &Builder{
		writer:    writer,
		path:      path,
		blockSize: blockSize,
		current:   block.NewBuilder(),
	}, nil
}

// AddEntry appends one entry, rotating to a fresh block first when the entry
// would push the current one past the block size. An entry larger than the
// block size gets a block of its own.
func (b *Builder) AddEntry(key, value []byte) error {
	if b.finished {
		return errors.New("add entry to finished sst builder")
	}

	footprint := 2*codec.Uint16Size + len(key) + len(value) + codec.Uint16Size
	if !b.current.Empty() && b.current.Size()+footprint > b.blockSize {
		if err := b.writeBlock(); err != nil {
			return err
		}
	}

	b.current.AddEntry(key, value)

	keyCopy := append([]byte(nil), key...)
	b.keys = append(b.keys, keyCopy)
	return nil
}

func (b *Builder) writeBlock() error {
	built := b.current.Build()
	encoded := built.Encode()

	offset := b.writer.Size()
	if err := b.writer.Append(encoded); err != nil {
		return errors.Wrap(err, "write block")
	}

	b.metas = append(b.metas, Metadata{
		Offset:   offset,
		Size:     uint64(len(encoded)),
		FirstKey: append([]byte(nil), built.FirstKey()...),
		LastKey:  append([]byte(nil), built.LastKey()...),
	})
	b.current = block.NewBuilder()
	return nil
}

// Build flushes the tail block, writes the metadata section, the metadata
// offset table and the block count, makes the file durable, writes the filter
// sidecar, and returns a readable Table over the same file.
func (b *Builder) Build() (*Table, error) {
	if b.finished {
		return nil, errors.New("sst builder already finished")
	}
	b.finished = true

	if !b.current.Empty() {
		if err := b.writeBlock(); err != nil {
			return nil, err
		}
	}

	trailer := make([]byte, 0, codec.Uint64Size*(len(b.metas)+1))
	for _, meta := range b.metas {
		trailer = codec.AppendUint64(trailer, b.writer.Size())

		if err := b.writer.Append(meta.Encode()); err != nil {
			return nil, errors.Wrap(err, "write block metadata")
		}
	}
	trailer = codec.AppendUint64(trailer, uint64(len(b.metas)))

	if err := b.writer.AppendAndSync(trailer); err != nil {
		return nil, errors.Wrap(err, "write sst trailer")
	}
	if err := b.writer.Close(); err != nil {
		return nil, errors.Wrap(err, "close sst")
	}

	filter := bloom.NewWithEstimates(uint(max(len(b.keys), 1)), falsePositiveRate)
	for _, key := range b.keys {
		filter.Add(key)
	}
	if err := writeFilter(filterPath(b.path), filter); err != nil {
		return nil, err
	}

	return Open(b.path)
}
