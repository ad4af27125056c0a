// Package wal implements the per-memtable write-ahead log: a flat file of
// length-prefixed records replayed on recovery to rebuild the memtable the
// log protected.
package wal

import (
	"fmt"
	"path/filepath"

	"github.com/Priyanshu23/FlintDBGo/codec"
	"github.com/Priyanshu23/FlintDBGo/fileio"
	"github.com/pkg/errors"
)

// ErrTruncated is returned by Read when the file's last record is incomplete.
// The engine rejects such files loudly rather than guessing where the damage
// starts.
var ErrTruncated = errors.New("truncated wal")

// Record is one logged write. A zero-length value is a tombstone.
type Record struct {
	Key   []byte
	Value []byte
}

// Encode lays the record out as key_len_u16 | key | value_len_u16 | value.
func (r Record) Encode() []byte {
	buf := make([]byte, 0, 2*codec.Uint16Size+len(r.Key)+len(r.Value))
	buf = codec.AppendUint16(buf, uint16(len(r.Key)))
	buf = append(buf, r.Key...)
	buf = codec.AppendUint16(buf, uint16(len(r.Value)))
	buf = append(buf, r.Value...)
	return buf
}

// FileName returns the canonical WAL path for a memtable id.
func FileName(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.wal", id))
}

// WAL appends records to one log file.
type WAL struct {
	writer *fileio.Writer
	closed bool
}

// Create opens a fresh log at path, creating parent directories as needed.
func Create(path string) (*WAL, error) {
	writer, err := fileio.OpenWriter(path)
	if err != nil {
		return nil, errors.Wrap(err, "create wal")
	}
	return &WAL{writer: writer}, nil
}

// AddRecord appends one record. The bytes reach the OS before returning but
// are not forced to stable storage; durability comes from AddRecordAndSync,
// Sync, or Close.
func (w *WAL) AddRecord(rec Record) error {
	return errors.Wrap(w.writer.Append(rec.Encode()), "wal append")
}

// AddRecordAndSync appends one record and forces it to stable storage.
func (w *WAL) AddRecordAndSync(rec Record) error {
	return errors.Wrap(w.writer.AppendAndSync(rec.Encode()), "wal append")
}

// Sync forces all appended records to stable storage.
func (w *WAL) Sync() error {
	return w.writer.Sync()
}

// Close syncs and closes the log. Subsequent calls are no-ops.
func (w *WAL) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.writer.Sync(); err != nil {
		_ = w.writer.Close()
		return err
	}
	return w.writer.Close()
}

// Read returns the full record sequence of the log at path, in file order.
func Read(path string) ([]Record, error) {
	reader, err := fileio.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "open wal")
	}
	defer reader.Close()

	data := make([]byte, reader.Size())
	if err := reader.ReadAt(0, data); err != nil {
		return nil, errors.Wrap(err, "read wal")
	}

	var records []Record
	pos := 0
	for pos < len(data) {
		key, next, err := readSlice(data, pos)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d key at offset %d", len(records), pos)
		}
		value, next, err := readSlice(data, next)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d value at offset %d", len(records), pos)
		}
		records = append(records, Record{Key: key, Value: value})
		pos = next
	}
	return records, nil
}

func readSlice(data []byte, pos int) ([]byte, int, error) {
	if pos+codec.Uint16Size > len(data) {
		return nil, 0, ErrTruncated
	}
	n, err := codec.Uint16(data[pos:])
	if err != nil {
		return nil, 0, err
	}
	end := pos + codec.Uint16Size + int(n)
	if end > len(data) {
		return nil, 0, ErrTruncated
	}
	return data[pos+codec.Uint16Size : end], end, nil
}
