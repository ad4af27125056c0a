package sst

import "github.com/Priyanshu23/FlintDBGo/block"

// Iterator walks every entry of a table in key order, streaming one block at
// a time. Block reads can fail, so the iterator carries a sticky error:
// callers check Err after the walk.
type Iterator struct {
	table    *Table
	blockIdx int
	inner    *block.Iterator
	err      error
}

// NewIterator positions a fresh iterator on the table's first entry.
func NewIterator(t *Table) (*Iterator, error) {
	it := &Iterator{table: t}
	if err := it.loadBlock(); err != nil {
		return nil, err
	}
	return it, nil
}

// loadBlock opens the current block, skipping any that turn out empty.
func (it *Iterator) loadBlock() error {
	for it.blockIdx < it.table.NumBlocks() {
		blk, err := it.table.Block(it.blockIdx)
		if err != nil {
			it.err = err
			it.blockIdx = it.table.NumBlocks()
			return err
		}
		inner := block.NewIterator(blk)
		if inner.Valid() {
			it.inner = inner
			return nil
		}
		it.blockIdx++
	}
	it.inner = nil
	return nil
}

// Valid reports whether the cursor is on an entry.
func (it *Iterator) Valid() bool {
	return it.inner != nil && it.inner.Valid()
}

// Next advances the cursor, moving to the next block when the current one is
// exhausted.
func (it *Iterator) Next() {
	if !it.Valid() {
		return
	}
	it.inner.Next()
	if !it.inner.Valid() {
		it.blockIdx++
		_ = it.loadBlock()
	}
}

// Key returns the current entry's key, or nil when invalid.
func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.inner.Key()
}

// Value returns the current entry's value, or nil when invalid.
func (it *Iterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.inner.Value()
}

// Err reports a block read failure encountered while advancing.
func (it *Iterator) Err() error {
	return it.err
}
