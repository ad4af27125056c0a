// Package fileio provides the byte-level file primitives the engine is built
// on: a positional reader and an appending writer with an explicit durability
// barrier.
package fileio

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Reader reads a file at arbitrary offsets. The file stays open until Close.
type Reader struct {
	f    *os.File
	size uint64
}

// OpenReader opens path for positional reads and records its size.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	return &Reader{f: f, size: uint64(info.Size())}, nil
}

// ReadAt fills buf with the bytes at offset. Short reads inside the file
// bounds are completed before returning.
func (r *Reader) ReadAt(offset uint64, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if _, err := io.ReadFull(io.NewSectionReader(r.f, int64(offset), int64(len(buf))), buf); err != nil {
		return errors.Wrapf(err, "read %d bytes at %d from %s", len(buf), offset, r.f.Name())
	}
	return nil
}

// Size returns the file size observed at open time.
func (r *Reader) Size() uint64 {
	return r.size
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}
