package sst

import (
	"bytes"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
)

// The filter is an optimization layered next to the table, never inside it:
// the SST byte layout is fixed, so the filter lives in a sidecar file that
// can be regenerated from the table at any time.

func filterPath(tablePath string) string {
	return tablePath + ".filter"
}

// writeFilter persists the filter atomically so a crash can only ever leave
// the previous sidecar (or none), both of which Open handles.
func writeFilter(path string, filter *bloom.BloomFilter) error {
	var buf bytes.Buffer
	if _, err := filter.WriteTo(&buf); err != nil {
		return errors.Wrap(err, "encode filter")
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return errors.Wrapf(err, "write filter %s", path)
	}
	return nil
}

func loadFilter(path string) (*bloom.BloomFilter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open filter %s", path)
	}
	defer f.Close()

	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(f); err != nil {
		return nil, errors.Wrapf(err, "decode filter %s", path)
	}
	return filter, nil
}

// rebuildFilter scans every block of the table and re-derives the filter,
// persisting it best-effort for the next open.
func (t *Table) rebuildFilter() (*bloom.BloomFilter, error) {
	var keys [][]byte
	it, err := NewIterator(t)
	if err != nil {
		return nil, err
	}
	for it.Valid() {
		keys = append(keys, append([]byte(nil), it.Key()...))
		it.Next()
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	filter := bloom.NewWithEstimates(uint(max(len(keys), 1)), falsePositiveRate)
	for _, key := range keys {
		filter.Add(key)
	}

	// Losing the sidecar only costs the next open another rebuild.
	_ = writeFilter(filterPath(t.path), filter)
	return filter, nil
}
