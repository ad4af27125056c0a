package flintdb

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		SSTDir:       filepath.Join(dir, "sst"),
		WALDir:       filepath.Join(dir, "wal"),
		ManifestPath: filepath.Join(dir, "manifest.json"),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func openEngine(t *testing.T, opts Options) *Storage {
	t.Helper()
	s, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustGet(t *testing.T, s *Storage, key string) []byte {
	t.Helper()
	value, ok, err := s.Get([]byte(key))
	require.NoError(t, err)
	require.True(t, ok, "expected %q present", key)
	return value
}

func mustAbsent(t *testing.T, s *Storage, key string) {
	t.Helper()
	_, ok, err := s.Get([]byte(key))
	require.NoError(t, err)
	require.False(t, ok, "expected %q absent", key)
}

func sstFileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	count := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "sst_") && !strings.HasSuffix(entry.Name(), ".filter") {
			count++
		}
	}
	return count
}

func TestPutAndGet(t *testing.T) {
	s := openEngine(t, testOptions(t))

	require.NoError(t, s.Put([]byte("hello"), []byte("world")))
	require.Equal(t, []byte("world"), mustGet(t, s, "hello"))
	mustAbsent(t, s, "nope")
}

func TestOverwriteThenRemove(t *testing.T) {
	s := openEngine(t, testOptions(t))

	require.NoError(t, s.Put([]byte("k"), []byte("v1")))
	require.NoError(t, s.Put([]byte("k"), []byte("v2")))
	require.Equal(t, []byte("v2"), mustGet(t, s, "k"))

	require.NoError(t, s.Remove([]byte("k")))
	mustAbsent(t, s, "k")

	require.NoError(t, s.Put([]byte("k"), []byte("v3")))
	require.Equal(t, []byte("v3"), mustGet(t, s, "k"))
}

func TestRotationAndBackgroundFlush(t *testing.T) {
	opts := testOptions(t)
	opts.MemTableSize = 500
	opts.MaxMemTables = 1
	s := openEngine(t, opts)

	require.NoError(t, s.Put([]byte("key1"), []byte("val1")))
	require.NoError(t, s.Put([]byte("key2"), []byte("val2")))
	require.NoError(t, s.Put([]byte("key3"), bytes.Repeat([]byte("x"), 600)))
	require.NoError(t, s.Put([]byte("key4"), bytes.Repeat([]byte("y"), 600)))

	require.Equal(t, []byte("val1"), mustGet(t, s, "key1"))
	require.Equal(t, []byte("val2"), mustGet(t, s, "key2"))
	require.Len(t, mustGet(t, s, "key3"), 600)
	require.Len(t, mustGet(t, s, "key4"), 600)

	// Two rotations leave two immutable memtables; with MaxMemTables=1 the
	// background worker drains the oldest of them.
	require.Eventually(t, func() bool {
		return sstFileCount(t, opts.SSTDir) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, []byte("val1"), mustGet(t, s, "key1"))
}

func TestTombstoneHidesAcrossLayers(t *testing.T) {
	opts := testOptions(t)
	opts.MemTableSize = 200
	s := openEngine(t, opts)

	// Value and tombstone both end up in SSTs.
	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	require.NoError(t, s.Put([]byte("fill1"), bytes.Repeat([]byte("a"), 300)))
	require.NoError(t, s.Remove([]byte("k")))
	require.NoError(t, s.Put([]byte("fill2"), bytes.Repeat([]byte("b"), 300)))
	require.NoError(t, s.FlushRun(true))

	require.GreaterOrEqual(t, sstFileCount(t, opts.SSTDir), 2)
	mustAbsent(t, s, "k")

	// A fresh put shadows the flushed tombstone again.
	require.NoError(t, s.Put([]byte("k"), []byte("back")))
	require.Equal(t, []byte("back"), mustGet(t, s, "k"))
}

func TestTombstoneInMemtableHidesSSTValue(t *testing.T) {
	opts := testOptions(t)
	opts.MemTableSize = 200
	s := openEngine(t, opts)

	require.NoError(t, s.Put([]byte("k"), []byte("old")))
	require.NoError(t, s.Put([]byte("fill"), bytes.Repeat([]byte("a"), 300)))
	require.NoError(t, s.FlushRun(true))
	require.GreaterOrEqual(t, sstFileCount(t, opts.SSTDir), 1)

	require.NoError(t, s.Remove([]byte("k")))
	mustAbsent(t, s, "k")
}

func TestFlushRunAllDrainsQueue(t *testing.T) {
	opts := testOptions(t)
	opts.MemTableSize = 100
	s := openEngine(t, opts)

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key_%02d", i)
		require.NoError(t, s.Put([]byte(key), bytes.Repeat([]byte("v"), 80)))
	}
	require.NoError(t, s.FlushRun(true))

	s.mu.RLock()
	queued := len(s.immutable)
	s.mu.RUnlock()
	require.Zero(t, queued)

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key_%02d", i)
		require.Len(t, mustGet(t, s, key), 80)
	}
}

func TestFlushRemovesWalFiles(t *testing.T) {
	opts := testOptions(t)
	opts.MemTableSize = 100
	s := openEngine(t, opts)

	require.NoError(t, s.Put([]byte("a"), bytes.Repeat([]byte("1"), 80)))
	require.NoError(t, s.Put([]byte("b"), bytes.Repeat([]byte("2"), 80)))
	require.NoError(t, s.FlushRun(true))

	entries, err := os.ReadDir(opts.WALDir)
	require.NoError(t, err)
	// Only the active memtable's WAL remains.
	require.Len(t, entries, 1)
}

func TestOperationsAfterClose(t *testing.T) {
	s := openEngine(t, testOptions(t))
	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	require.NoError(t, s.Close())

	require.True(t, errors.Is(s.Put([]byte("k"), []byte("v")), ErrStopped))
	_, _, err := s.Get([]byte("k"))
	require.True(t, errors.Is(err, ErrStopped))
	require.True(t, errors.Is(s.Remove([]byte("k")), ErrStopped))
}

func TestCloseIdempotent(t *testing.T) {
	s := openEngine(t, testOptions(t))
	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestCloseDrainsEverything(t *testing.T) {
	opts := testOptions(t)
	opts.MemTableSize = 100
	s := openEngine(t, opts)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put([]byte(fmt.Sprintf("key_%d", i)), bytes.Repeat([]byte("v"), 80)))
	}
	require.NoError(t, s.Close())

	// Every memtable, including the active one, reached disk.
	require.GreaterOrEqual(t, sstFileCount(t, opts.SSTDir), 5)
}

func TestCurrentTableID(t *testing.T) {
	opts := testOptions(t)
	opts.MemTableSize = 100
	s := openEngine(t, opts)
	require.Equal(t, uint64(1), s.CurrentTableID())

	require.NoError(t, s.Put([]byte("a"), bytes.Repeat([]byte("v"), 80)))
	require.NoError(t, s.Put([]byte("b"), bytes.Repeat([]byte("v"), 80)))
	require.Equal(t, uint64(2), s.CurrentTableID())
}

func TestStats(t *testing.T) {
	s := openEngine(t, testOptions(t))

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Put([]byte("b"), []byte("2")))
	_, _, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, s.Remove([]byte("a")))

	stats := s.Stats()
	require.Equal(t, int64(2), stats.Puts)
	require.Equal(t, int64(1), stats.Gets)
	require.Equal(t, int64(1), stats.Removes)
}

func TestRejectsOversizedRecords(t *testing.T) {
	s := openEngine(t, testOptions(t))

	huge := bytes.Repeat([]byte("x"), 1<<16)
	require.Error(t, s.Put([]byte("k"), huge))
	require.Error(t, s.Put(huge, []byte("v")))

	// The format limit itself is writable.
	limit := bytes.Repeat([]byte("y"), 1<<16-1)
	require.NoError(t, s.Put([]byte("edge"), limit))
	require.Len(t, mustGet(t, s, "edge"), 1<<16-1)
}

func TestSyncOnWriteOption(t *testing.T) {
	opts := testOptions(t)
	opts.WALSync = SyncOnWrite
	s := openEngine(t, opts)

	require.NoError(t, s.Put([]byte("durable"), []byte("yes")))
	require.Equal(t, []byte("yes"), mustGet(t, s, "durable"))
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	opts := testOptions(t)
	opts.MemTableSize = 1024
	s := openEngine(t, opts)

	const writers = 4
	const perWriter = 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				key := fmt.Sprintf("w%d_key_%03d", w, i)
				value := fmt.Sprintf("w%d_value_%03d", w, i)
				if err := s.Put([]byte(key), []byte(value)); err != nil {
					t.Error(err)
					return
				}
				// Read-your-writes on the writing goroutine.
				got, ok, err := s.Get([]byte(key))
				if err != nil || !ok || string(got) != value {
					t.Errorf("get %s: %q %v %v", key, got, ok, err)
					return
				}
			}
		}(w)
	}

	stop := make(chan struct{})
	var readerWG sync.WaitGroup
	readerWG.Add(1)
	go func() {
		defer readerWG.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, _, err := s.Get([]byte("w0_key_000")); err != nil {
				t.Error(err)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	wg.Wait()
	close(stop)
	readerWG.Wait()

	for w := 0; w < writers; w++ {
		for i := 0; i < perWriter; i++ {
			key := fmt.Sprintf("w%d_key_%03d", w, i)
			require.Equal(t, fmt.Sprintf("w%d_value_%03d", w, i), string(mustGet(t, s, key)))
		}
	}
}
