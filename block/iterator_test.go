package block

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIteratorWalksInOrder(t *testing.T) {
	entries := []Entry{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("c"), Value: []byte("3")},
	}
	b := buildBlock(t, entries)

	it := NewIterator(b)
	var got []Entry
	prev := []byte(nil)
	for it.Valid() {
		require.True(t, prev == nil || bytes.Compare(prev, it.Key()) < 0)
		prev = it.Key()
		got = append(got, Entry{Key: it.Key(), Value: it.Value()})
		it.Next()
	}
	require.Equal(t, entries, got)
}

func TestIteratorPastEnd(t *testing.T) {
	b := buildBlock(t, []Entry{{Key: []byte("only"), Value: []byte("one")}})

	it := NewIterator(b)
	require.True(t, it.Valid())
	it.Next()
	require.False(t, it.Valid())
	require.Nil(t, it.Key())
	require.Nil(t, it.Value())

	// Advancing an invalid iterator stays invalid.
	it.Next()
	require.False(t, it.Valid())
	require.Nil(t, it.Key())
}

func TestIteratorEmptyBlock(t *testing.T) {
	it := NewIterator(buildBlock(t, nil))
	require.False(t, it.Valid())
	require.Nil(t, it.Key())
	require.Nil(t, it.Value())
}

func TestIteratorRestartsFresh(t *testing.T) {
	b := buildBlock(t, []Entry{
		{Key: []byte("x"), Value: []byte("1")},
		{Key: []byte("y"), Value: []byte("2")},
	})

	first := NewIterator(b)
	for first.Valid() {
		first.Next()
	}

	second := NewIterator(b)
	require.True(t, second.Valid())
	require.Equal(t, []byte("x"), second.Key())
}
