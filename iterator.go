package flintdb

import (
	"github.com/Priyanshu23/FlintDBGo/block"
	"github.com/Priyanshu23/FlintDBGo/memtable"
	"github.com/Priyanshu23/FlintDBGo/sst"
)

// Iterator is the shape shared by the block, memtable and SST iterators: a
// cursor that is valid while on an entry, advances with Next, and exposes the
// current key and value. A merging iterator across the layers can be built on
// top of it.
type Iterator interface {
	Valid() bool
	Next()
	Key() []byte
	Value() []byte
}

var (
	_ Iterator = (*block.Iterator)(nil)
	_ Iterator = (*memtable.Iterator)(nil)
	_ Iterator = (*sst.Iterator)(nil)
)
