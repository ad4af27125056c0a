package sst

import (
	"bytes"
	"sort"

	"github.com/Priyanshu23/FlintDBGo/block"
	"github.com/Priyanshu23/FlintDBGo/codec"
	"github.com/Priyanshu23/FlintDBGo/fileio"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/pkg/errors"
)

// Table reads one SST file. Only the block metadata (and the bloom filter)
// stay resident; block bodies are read on demand.
type Table struct {
	reader *fileio.Reader
	path   string
	metas  []Metadata
	filter *bloom.BloomFilter
}

// Open loads the trailer of the SST at path: the trailing block count, the
// metadata offset table before it, and each block's metadata. The filter
// sidecar is loaded alongside, or rebuilt from the blocks when it is missing
// or unreadable.
func Open(path string) (*Table, error) {
	reader, err := fileio.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "open sst")
	}

	t := &Table{reader: reader, path: path}
	if err := t.readMetadata(); err != nil {
		_ = reader.Close()
		return nil, errors.Wrapf(err, "sst %s", path)
	}

	filter, err := loadFilter(filterPath(path))
	if err != nil {
		filter, err = t.rebuildFilter()
		if err != nil {
			_ = reader.Close()
			return nil, errors.Wrapf(err, "rebuild filter for %s", path)
		}
	}
	t.filter = filter

	return t, nil
}

func (t *Table) readMetadata() error {
	size := t.reader.Size()
	if size < codec.Uint64Size {
		return errors.Wrapf(codec.ErrMalformedInput, "file of %d bytes has no trailer", size)
	}

	buf := make([]byte, codec.Uint64Size)
	if err := t.reader.ReadAt(size-codec.Uint64Size, buf); err != nil {
		return err
	}
	count, err := codec.Uint64(buf)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	if count > (size-codec.Uint64Size)/codec.Uint64Size {
		return errors.Wrapf(codec.ErrMalformedInput, "%d blocks cannot fit in %d bytes", count, size)
	}
	offsetTablePos := size - codec.Uint64Size - count*codec.Uint64Size

	buf = make([]byte, count*codec.Uint64Size)
	if err := t.reader.ReadAt(offsetTablePos, buf); err != nil {
		return err
	}
	offsets := make([]uint64, count)
	for i := range offsets {
		offsets[i], err = codec.Uint64(buf[i*codec.Uint64Size:])
		if err != nil {
			return err
		}
	}

	metaRegionStart := offsets[0]
	if metaRegionStart > offsetTablePos {
		return errors.Wrapf(codec.ErrMalformedInput, "metadata region starts past its offset table")
	}
	region := make([]byte, offsetTablePos-metaRegionStart)
	if err := t.reader.ReadAt(metaRegionStart, region); err != nil {
		return err
	}

	t.metas = make([]Metadata, 0, count)
	rest := region
	for i := uint64(0); i < count; i++ {
		var meta Metadata
		meta, rest, err = decodeMetadata(rest)
		if err != nil {
			return errors.Wrapf(err, "block metadata %d", i)
		}
		t.metas = append(t.metas, meta)
	}
	return nil
}

// NumBlocks returns the number of blocks in the table.
func (t *Table) NumBlocks() int {
	return len(t.metas)
}

// Path returns the file the table reads from.
func (t *Table) Path() string {
	return t.path
}

// Metadata exposes the resident block metadata, for tests and tooling.
func (t *Table) Metadata() []Metadata {
	return t.metas
}

// Block reads and decodes the idx-th block.
func (t *Table) Block(idx int) (*block.Block, error) {
	if idx < 0 || idx >= len(t.metas) {
		return nil, errors.Wrapf(block.ErrOutOfBounds, "block %d of %d", idx, len(t.metas))
	}

	meta := t.metas[idx]
	buf := make([]byte, meta.Size)
	if err := t.reader.ReadAt(meta.Offset, buf); err != nil {
		return nil, errors.Wrapf(err, "read block %d", idx)
	}

	decoded, err := block.Decode(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "decode block %d", idx)
	}
	return decoded, nil
}

// Get returns the value stored for key, or absent. The bloom filter screens
// out most misses; the block metadata is binary-searched for the covering key
// range.
func (t *Table) Get(key []byte) ([]byte, bool, error) {
	if len(t.metas) == 0 {
		return nil, false, nil
	}
	if t.filter != nil && !t.filter.Test(key) {
		return nil, false, nil
	}

	idx := sort.Search(len(t.metas), func(i int) bool {
		return bytes.Compare(t.metas[i].LastKey, key) >= 0
	})
	if idx == len(t.metas) || bytes.Compare(t.metas[idx].FirstKey, key) > 0 {
		return nil, false, nil
	}

	blk, err := t.Block(idx)
	if err != nil {
		return nil, false, err
	}
	return blk.Get(key)
}

// Close releases the underlying file.
func (t *Table) Close() error {
	return t.reader.Close()
}
