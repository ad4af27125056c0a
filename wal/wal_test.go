package wal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestAddRecordReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.wal")

	records := []Record{
		{Key: []byte("key_1"), Value: []byte("value_1")},
		{Key: []byte("key_2"), Value: []byte("value_2")},
		{Key: []byte("key_3"), Value: []byte("value_3")},
	}

	w, err := Create(path)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, w.AddRecord(rec))
	}
	require.NoError(t, w.Close())

	got, err := Read(path)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(records, got))
}

func TestAddRecordAndSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.wal")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddRecordAndSync(Record{Key: []byte("k"), Value: []byte("v")}))

	// The record is readable before the writer is closed.
	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NoError(t, w.Close())
}

func TestEncodeLayout(t *testing.T) {
	rec := Record{Key: []byte("ab"), Value: []byte("xyz")}
	require.Equal(t, []byte{0, 2, 'a', 'b', 0, 3, 'x', 'y', 'z'}, rec.Encode())
}

func TestTombstoneRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.wal")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddRecord(Record{Key: []byte("gone"), Value: nil}))
	require.NoError(t, w.Close())

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []byte("gone"), got[0].Key)
	require.Empty(t, got[0].Value)
}

func TestEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.wal")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	got, err := Read(path)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestReadTruncated(t *testing.T) {
	full := Record{Key: []byte("hello"), Value: []byte("world")}.Encode()

	tests := []struct {
		name string
		data []byte
	}{
		{"partial key length", full[:1]},
		{"partial key", full[:4]},
		{"missing value length", full[:7]},
		{"partial value", full[:len(full)-2]},
		{"good record then garbage", append(append([]byte(nil), full...), 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "1.wal")
			require.NoError(t, os.WriteFile(path, tt.data, 0o644))

			_, err := Read(path)
			require.True(t, errors.Is(err, ErrTruncated))
		})
	}
}

func TestCloseIdempotent(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "1.wal"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestBinaryKeysAndValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "9.wal")

	records := []Record{
		{Key: []byte{0, 1, 2, 3}, Value: []byte{9, 8, 7}},
		{Key: bytes.Repeat([]byte("k"), 1024), Value: bytes.Repeat([]byte("v"), 2048)},
	}

	w, err := Create(path)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, w.AddRecord(rec))
	}
	require.NoError(t, w.Close())

	got, err := Read(path)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(records, got))
}

func TestFileName(t *testing.T) {
	require.Equal(t, filepath.Join("wals", "17.wal"), FileName("wals", 17))
}
