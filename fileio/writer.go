package fileio

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Writer appends bytes to a file. Append goes to the OS immediately; Sync
// forces everything appended so far onto stable storage. Close is idempotent.
type Writer struct {
	f      *os.File
	size   uint64
	closed bool
}

// OpenWriter creates (or truncates) path for appending, creating parent
// directories as needed.
func OpenWriter(path string) (*Writer, error) {
	return openWriter(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

// OpenAppend opens path for appending without truncating, creating it and its
// parent directories as needed. Used by the manifest, which must survive
// re-opens.
func OpenAppend(path string) (*Writer, error) {
	return openWriter(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND)
}

func openWriter(path string, flag int) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create directory %s", dir)
		}
	}

	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	w := &Writer{f: f}
	if flag&os.O_APPEND != 0 {
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "stat %s", path)
		}
		w.size = uint64(info.Size())
	}

	return w, nil
}

// Append writes buf to the file, retrying partial writes.
func (w *Writer) Append(buf []byte) error {
	if w.closed {
		return errors.Errorf("append to closed writer %s", w.f.Name())
	}
	for len(buf) > 0 {
		n, err := w.f.Write(buf)
		w.size += uint64(n)
		if err != nil {
			return errors.Wrapf(err, "write %s", w.f.Name())
		}
		buf = buf[n:]
	}
	return nil
}

// AppendAndSync appends buf and forces it to stable storage.
func (w *Writer) AppendAndSync(buf []byte) error {
	if err := w.Append(buf); err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}
	return w.Sync()
}

// Sync flushes all appended bytes to stable storage, using the platform's full
// write barrier where one exists.
func (w *Writer) Sync() error {
	if w.closed {
		return errors.Errorf("sync closed writer %s", w.f.Name())
	}
	if err := fsyncFullBarrier(w.f); err != nil {
		return errors.Wrapf(err, "fsync %s", w.f.Name())
	}
	return nil
}

// Size returns the number of bytes written so far (including any pre-existing
// bytes of an append-mode file).
func (w *Writer) Size() uint64 {
	return w.size
}

// Close closes the file. Subsequent calls are no-ops.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", w.f.Name())
	}
	return nil
}
