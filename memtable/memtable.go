// Package memtable provides the in-memory, ordered key-value table that
// absorbs writes before they are flushed into SSTs. A memtable is Mutable
// until frozen, then read-only for the rest of its life.
package memtable

import (
	"sync"

	"github.com/Priyanshu23/FlintDBGo/sst"
	"github.com/Priyanshu23/FlintDBGo/wal"
	"github.com/pkg/errors"
)

// ErrImmutable is returned by Put once the memtable has been frozen. Under
// the engine's locking this indicates an internal invariant violation.
var ErrImmutable = errors.New("write to immutable memtable")

// Status is the memtable's lifecycle phase.
type Status int

const (
	// StatusMutable accepts writes.
	StatusMutable Status = iota
	// StatusImmutable is reached exactly once, by Freeze, and never left.
	StatusImmutable
)

// MemTable is a thread-safe ordered map with byte-size accounting. The id is
// shared with the WAL protecting the table and, after a flush, with the SST
// file carrying its contents.
type MemTable struct {
	mu     sync.RWMutex
	list   *skipList
	id     uint64
	cap    uint64
	size   uint64
	status Status
}

// New returns an empty Mutable memtable.
func New(id, capSize uint64) *MemTable {
	return &MemTable{
		list: newSkipList(),
		id:   id,
		cap:  capSize,
	}
}

// Recover replays the WAL at walPath, in file order, into a fresh memtable.
// Duplicate keys collapse to their last occurrence. The result is still
// Mutable.
func Recover(walPath string, id, capSize uint64) (*MemTable, error) {
	records, err := wal.Read(walPath)
	if err != nil {
		return nil, errors.Wrapf(err, "recover memtable %d", id)
	}

	m := New(id, capSize)
	for _, rec := range records {
		if err := m.Put(rec.Key, rec.Value); err != nil {
			return nil, errors.Wrapf(err, "recover memtable %d", id)
		}
	}
	return m, nil
}

// ID returns the memtable's identifier.
func (m *MemTable) ID() uint64 {
	return m.id
}

// CapSize returns the byte cap supplied at creation.
func (m *MemTable) CapSize() uint64 {
	return m.cap
}

// Get returns the stored value for key. A present zero-length value is a
// tombstone; interpreting it is the engine's job.
func (m *MemTable) Get(key []byte) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list.get(key)
}

// Put inserts or overwrites key. The slices are copied, so callers may reuse
// their buffers.
func (m *MemTable) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusImmutable {
		return errors.Wrapf(ErrImmutable, "memtable %d", m.id)
	}

	keyCopy := append([]byte(nil), key...)
	valueCopy := append([]byte(nil), value...)

	prev, replaced := m.list.put(keyCopy, valueCopy)
	if replaced {
		m.size = m.size - uint64(len(prev)) + uint64(len(value))
	} else {
		m.size += uint64(len(key) + len(value))
	}
	return nil
}

// Size returns the running sum of key and value lengths over resident keys.
func (m *MemTable) Size() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Len returns the number of distinct keys.
func (m *MemTable) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list.len()
}

// Status returns the current lifecycle phase.
func (m *MemTable) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Freeze makes the memtable read-only. The transition happens at most once;
// extra calls are no-ops.
func (m *MemTable) Freeze() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusImmutable
}

// Iterator walks the entries in key order. Only frozen memtables can be
// iterated: their contents no longer change underneath the cursor.
func (m *MemTable) Iterator() (*Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.status != StatusImmutable {
		return nil, errors.Errorf("iterator over mutable memtable %d", m.id)
	}
	return &Iterator{node: m.list.first()}, nil
}

// Flush writes the entries, in key order, into a new SST at
// {sstDir}/sst_{id} and returns the readable table. The memtable must be
// frozen, and the engine keeps flushes non-concurrent per memtable.
func (m *MemTable) Flush(sstDir string, blockSize int) (*sst.Table, error) {
	it, err := m.Iterator()
	if err != nil {
		return nil, err
	}

	builder, err := sst.NewBuilder(sst.TablePath(sstDir, m.id), blockSize)
	if err != nil {
		return nil, errors.Wrapf(err, "flush memtable %d", m.id)
	}
	for it.Valid() {
		if err := builder.AddEntry(it.Key(), it.Value()); err != nil {
			return nil, errors.Wrapf(err, "flush memtable %d", m.id)
		}
		it.Next()
	}

	table, err := builder.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "flush memtable %d", m.id)
	}
	return table, nil
}
