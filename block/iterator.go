package block

// Iterator walks a block's entries in key order. Once the cursor moves past
// the last entry the iterator stays invalid and Key/Value return nil; restart
// by constructing a new iterator.
type Iterator struct {
	block *Block
	idx   int
	entry Entry
}

// NewIterator positions a fresh iterator on the block's first entry.
func NewIterator(b *Block) *Iterator {
	it := &Iterator{block: b}
	it.load()
	return it
}

// Valid reports whether the cursor is on an entry.
func (it *Iterator) Valid() bool {
	return it.idx < it.block.Len()
}

// Next advances the cursor. Calling Next past the end is a no-op that leaves
// the iterator invalid.
func (it *Iterator) Next() {
	if !it.Valid() {
		return
	}
	it.idx++
	it.load()
}

// Key returns the current entry's key, or nil when invalid.
func (it *Iterator) Key() []byte {
	return it.entry.Key
}

// Value returns the current entry's value, or nil when invalid.
func (it *Iterator) Value() []byte {
	return it.entry.Value
}

func (it *Iterator) load() {
	if !it.Valid() {
		it.entry = Entry{}
		return
	}
	entry, err := it.block.Entry(it.idx)
	if err != nil {
		// A builder-produced or successfully decoded block cannot yield a
		// malformed entry at a valid index.
		it.idx = it.block.Len()
		it.entry = Entry{}
		return
	}
	it.entry = entry
}
