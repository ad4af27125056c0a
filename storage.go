package flintdb

import (
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Priyanshu23/FlintDBGo/manifest"
	"github.com/Priyanshu23/FlintDBGo/memtable"
	"github.com/Priyanshu23/FlintDBGo/sst"
	"github.com/Priyanshu23/FlintDBGo/wal"
	"github.com/pkg/errors"
)

// ErrStopped is returned by Put, Get and Remove once Close has begun.
var ErrStopped = errors.New("engine stopped")

// flushInterval is the background worker's wake-up period.
const flushInterval = 50 * time.Millisecond

// maxKeyOrValueLen is the largest key or value the on-disk formats can carry:
// both the WAL and the block entry encodings use u16 length prefixes.
const maxKeyOrValueLen = 1<<16 - 1

const (
	stateRunning int32 = iota
	stateStopping
	stateStopped
)

// Storage is the engine. One instance exclusively owns its data directory;
// no other process (or instance) may touch the same paths.
type Storage struct {
	opts Options
	log  *slog.Logger

	// mu guards the fields below: the active memtable pointer, the immutable
	// queue (oldest first), the SST list (oldest first), the active WAL, the
	// manifest handle and the id counter.
	mu            sync.RWMutex
	active        *memtable.MemTable
	immutable     []*memtable.MemTable
	tables        []*sst.Table
	activeWAL     *wal.WAL
	manifest      *manifest.Manifest
	latestTableID uint64

	// flushMu serializes FlushRun between the worker and direct callers.
	flushMu sync.Mutex

	state atomic.Int32
	done  chan struct{}
	wg    sync.WaitGroup

	puts    atomic.Int64
	gets    atomic.Int64
	removes atomic.Int64
	flushes atomic.Int64
}

// Open recovers the engine state recorded under opts' paths, rotates in a
// fresh active memtable, and starts the background flush worker.
func Open(opts Options) (*Storage, error) {
	opts = opts.withDefaults()

	s := &Storage{
		opts: opts,
		log:  opts.Logger,
		done: make(chan struct{}),
	}

	if err := os.MkdirAll(opts.SSTDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create sst directory")
	}
	if err := os.MkdirAll(opts.WALDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create wal directory")
	}

	man, edits, err := manifest.Recover(opts.ManifestPath)
	if err != nil {
		return nil, err
	}
	s.manifest = man

	folded := manifest.Fold(edits)
	if err := s.recover(folded); err != nil {
		closeTables(s.tables)
		_ = man.Close()
		return nil, err
	}
	if folded.HasID {
		s.latestTableID = folded.MaxID + 1
	}

	if err := s.newActiveMemTable(); err != nil {
		closeTables(s.tables)
		_ = man.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.flushLoop()

	return s, nil
}

// recover loads the level-0 tables in ascending id order, then rebuilds an
// immutable memtable from every live WAL that is not already covered by a
// same-id table.
func (s *Storage) recover(folded manifest.State) error {
	tableIDs := dedupSorted(folded.Files[0])
	covered := make(map[uint64]bool, len(tableIDs))
	for _, id := range tableIDs {
		table, err := sst.Open(sst.TablePath(s.opts.SSTDir, id))
		if err != nil {
			return errors.Wrapf(err, "load sst %d", id)
		}
		s.tables = append(s.tables, table)
		covered[id] = true
	}

	for _, id := range dedupSorted(folded.WALs) {
		if covered[id] {
			continue
		}
		mem, err := memtable.Recover(wal.FileName(s.opts.WALDir, id), id, s.opts.MemTableSize)
		if err != nil {
			return err
		}
		if mem.Len() == 0 {
			continue
		}
		mem.Freeze()
		s.immutable = append(s.immutable, mem)
	}
	return nil
}

func dedupSorted(ids []uint64) []uint64 {
	out := append([]uint64(nil), ids...)
	slices.Sort(out)
	return slices.Compact(out)
}

// newActiveMemTable assigns the next table id, opens its WAL, records the WAL
// in the manifest, and installs the fresh memtable. The previous active WAL,
// if any, is closed once the replacement is in place. Callers hold the
// exclusive engine lock (or are still single-threaded in Open).
func (s *Storage) newActiveMemTable() error {
	s.latestTableID++
	id := s.latestTableID

	w, err := wal.Create(wal.FileName(s.opts.WALDir, id))
	if err != nil {
		return err
	}

	var edit manifest.VersionEdit
	edit.AddNewWAL(id)
	if err := s.manifest.AddRecord(edit); err != nil {
		_ = w.Close()
		return err
	}

	prev := s.activeWAL
	s.active = memtable.New(id, s.opts.MemTableSize)
	s.activeWAL = w

	if prev != nil {
		if err := prev.Close(); err != nil {
			s.log.Warn("close rotated wal", "error", err)
		}
	}
	return nil
}

// Put stores value under key. The WAL append happens before the memtable
// insert: on a WAL failure the write is not visible.
func (s *Storage) Put(key, value []byte) error {
	if s.state.Load() != stateRunning {
		return ErrStopped
	}
	s.puts.Add(1)
	return s.put(key, value)
}

func (s *Storage) put(key, value []byte) error {
	if len(key) > maxKeyOrValueLen {
		return errors.Errorf("key of %d bytes exceeds the %d-byte format limit", len(key), maxKeyOrValueLen)
	}
	if len(value) > maxKeyOrValueLen {
		return errors.Errorf("value of %d bytes exceeds the %d-byte format limit", len(value), maxKeyOrValueLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return ErrStopped
	}

	// Rotating an empty memtable would gain nothing, so oversized records are
	// allowed to overfill a fresh one.
	if s.active.Len() > 0 && uint64(len(key)+len(value))+s.active.Size() > s.opts.MemTableSize {
		s.active.Freeze()
		s.immutable = append(s.immutable, s.active)
		if err := s.newActiveMemTable(); err != nil {
			return err
		}
	}

	rec := wal.Record{Key: key, Value: value}
	if s.opts.WALSync == SyncOnWrite {
		if err := s.activeWAL.AddRecordAndSync(rec); err != nil {
			return err
		}
	} else if err := s.activeWAL.AddRecord(rec); err != nil {
		return err
	}

	return s.active.Put(key, value)
}

// Get returns the value stored under key, or absent. A zero-length stored
// value is a tombstone and reports absent. The probe order is active
// memtable, immutable memtables newest first, then SSTs newest first.
func (s *Storage) Get(key []byte) ([]byte, bool, error) {
	if s.state.Load() != stateRunning {
		return nil, false, ErrStopped
	}
	s.gets.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return nil, false, ErrStopped
	}

	if value, ok := s.active.Get(key); ok {
		return presentUnlessTombstone(value)
	}
	for i := len(s.immutable) - 1; i >= 0; i-- {
		if value, ok := s.immutable[i].Get(key); ok {
			return presentUnlessTombstone(value)
		}
	}
	for i := len(s.tables) - 1; i >= 0; i-- {
		value, ok, err := s.tables[i].Get(key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return presentUnlessTombstone(value)
		}
	}
	return nil, false, nil
}

func presentUnlessTombstone(value []byte) ([]byte, bool, error) {
	if len(value) == 0 {
		return nil, false, nil
	}
	return value, true, nil
}

// Remove deletes key by storing a tombstone.
func (s *Storage) Remove(key []byte) error {
	if s.state.Load() != stateRunning {
		return ErrStopped
	}
	s.removes.Add(1)
	return s.put(key, nil)
}

// FlushRun drains immutable memtables into SSTs: all of them when flushAll,
// otherwise only the oldest beyond the MaxMemTables watermark. The commit —
// manifest edit, SST list append, queue cut — is one exclusive-locked step,
// so readers on either side of it see a consistent view.
func (s *Storage) FlushRun(flushAll bool) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.RLock()
	take := len(s.immutable) - s.opts.MaxMemTables
	if flushAll {
		take = len(s.immutable)
	}
	if take <= 0 {
		s.mu.RUnlock()
		return nil
	}
	targets := make([]*memtable.MemTable, take)
	copy(targets, s.immutable[:take])
	s.mu.RUnlock()

	tables := make([]*sst.Table, 0, len(targets))
	for _, mem := range targets {
		table, err := mem.Flush(s.opts.SSTDir, s.opts.BlockSize)
		if err != nil {
			closeTables(tables)
			return err
		}
		tables = append(tables, table)
	}

	s.mu.Lock()
	var edit manifest.VersionEdit
	for _, mem := range targets {
		edit.AddNewFile(0, mem.ID())
	}
	if err := s.manifest.AddRecord(edit); err != nil {
		s.mu.Unlock()
		closeTables(tables)
		return errors.Wrap(err, "record flushed tables")
	}
	s.tables = append(s.tables, tables...)
	s.immutable = s.immutable[take:]
	s.mu.Unlock()

	s.flushes.Add(int64(take))

	// The tables are in the manifest now; their WALs are redundant.
	for _, mem := range targets {
		path := wal.FileName(s.opts.WALDir, mem.ID())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn("remove flushed wal", "path", path, "error", err)
		}
	}
	return nil
}

func closeTables(tables []*sst.Table) {
	for _, t := range tables {
		_ = t.Close()
	}
}

func (s *Storage) flushLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Errors leave the queue intact; the next tick retries.
			if err := s.FlushRun(false); err != nil {
				s.log.Error("background flush", "error", err)
			}
		case <-s.done:
			return
		}
	}
}

// Close stops the engine: it joins the flush worker, freezes the active
// memtable, drains everything to disk, and releases the files. Close is
// idempotent; the first terminal error is returned.
func (s *Storage) Close() error {
	if !s.state.CompareAndSwap(stateRunning, stateStopping) {
		return nil
	}

	close(s.done)
	s.wg.Wait()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.mu.Lock()
	if s.active != nil {
		if s.active.Len() > 0 {
			s.active.Freeze()
			s.immutable = append(s.immutable, s.active)
		}
		s.active = nil
	}
	if s.activeWAL != nil {
		keep(s.activeWAL.Close())
		s.activeWAL = nil
	}
	s.mu.Unlock()

	keep(s.FlushRun(true))

	s.mu.Lock()
	keep(s.manifest.Close())
	for _, t := range s.tables {
		keep(t.Close())
	}
	s.tables = nil
	s.mu.Unlock()

	s.state.Store(stateStopped)
	return firstErr
}

// CurrentTableID returns the most recently assigned table id.
func (s *Storage) CurrentTableID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestTableID
}

// Stats is a snapshot of the engine's operation counters.
type Stats struct {
	Puts    int64
	Gets    int64
	Removes int64
	Flushes int64
}

// Stats returns the counters accumulated since Open.
func (s *Storage) Stats() Stats {
	return Stats{
		Puts:    s.puts.Load(),
		Gets:    s.gets.Load(),
		Removes: s.removes.Load(),
		Flushes: s.flushes.Load(),
	}
}
