// Package flintdb is a single-node, embedded key-value storage engine
// organized as a log-structured merge tree. Writes land in an ordered
// in-memory memtable guarded by a write-ahead log; full memtables rotate into
// an immutable queue that a background worker drains into sorted string
// tables on disk. A manifest of version edits ties the on-disk files back
// together after a restart.
package flintdb

import "log/slog"

// SyncOption controls when WAL appends are forced to stable storage.
type SyncOption int

const (
	// SyncOnClose defers the durability barrier to rotation and close time.
	// A process crash loses nothing (the bytes reached the OS); an OS crash
	// may lose the records appended since the last sync.
	SyncOnClose SyncOption = iota
	// SyncOnWrite fsyncs the WAL on every put.
	SyncOnWrite
)

// Options configures an engine. The zero value is usable: every field falls
// back to the documented default.
type Options struct {
	// MemTableSize caps one memtable's byte size. Default 4096.
	MemTableSize uint64
	// MaxMemTables is how many immutable memtables may sit in memory before
	// the background worker starts draining the oldest. Default 2.
	MaxMemTables int
	// BlockSize caps one SST block's encoded size. Default 1024.
	BlockSize int
	// SSTDir holds the sst_{id} files. Default "./sst".
	SSTDir string
	// ManifestPath is the version-edit log. Default "./manifest.json".
	ManifestPath string
	// WALDir holds the {id}.wal files. Default "./wal".
	WALDir string
	// WALSync selects the WAL durability mode. Default SyncOnClose.
	WALSync SyncOption
	// Logger receives flush-worker and cleanup diagnostics. Default
	// slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MemTableSize == 0 {
		o.MemTableSize = 4096
	}
	if o.MaxMemTables == 0 {
		o.MaxMemTables = 2
	}
	if o.BlockSize == 0 {
		o.BlockSize = 1024
	}
	if o.SSTDir == "" {
		o.SSTDir = "./sst"
	}
	if o.ManifestPath == "" {
		o.ManifestPath = "./manifest.json"
	}
	if o.WALDir == "" {
		o.WALDir = "./wal"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
