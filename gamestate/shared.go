package gamestate

import (
	"github.com/rotisserie/eris"

	"github.com/argus-labs/ecsquery/component"
	"github.com/argus-labs/ecsquery/internal/assert"
	"github.com/argus-labs/ecsquery/types"
)

// sharedEntry is one interned value of a shared component type.
type sharedEntry struct {
	key   component.Key
	value types.Component
	refs  int // Number of entity rows pointing at this entry
}

// sharedTable interns the values of one shared component type. Entities with structurally equal values point at
// the same entry, so a shared filter compares entries instead of values.
type sharedTable struct {
	meta    types.ComponentMetadata
	entries map[uint64][]*sharedEntry // Key hash -> entries, more than one only on hash collisions
}

func newSharedTable(meta types.ComponentMetadata) *sharedTable {
	return &sharedTable{
		meta:    meta,
		entries: make(map[uint64][]*sharedEntry),
	}
}

// find returns the entry holding the value with the given key, or nil if no entity carries it.
func (t *sharedTable) find(key component.Key) *sharedEntry {
	for _, e := range t.entries[key.Hash] {
		if e.key.Equal(key) {
			return e
		}
	}
	return nil
}

// acquire returns the entry for v with its reference count incremented.
func (t *sharedTable) acquire(v types.Component) *sharedEntry {
	key, err := component.KeyOf(t.meta, v)
	assert.That(err == nil, "shared value %q was not validated before being stored: %v", t.meta.Name(), err)

	if e := t.find(key); e != nil {
		e.refs++
		return e
	}
	e := &sharedEntry{key: key, value: v, refs: 1}
	t.entries[key.Hash] = append(t.entries[key.Hash], e)
	return e
}

// release drops one reference to e and forgets it once no row points at it.
func (t *sharedTable) release(e *sharedEntry) {
	if e == nil {
		return
	}
	assert.That(e.refs > 0, "shared value released more often than acquired")
	e.refs--
	if e.refs > 0 {
		return
	}

	bucket := t.entries[e.key.Hash]
	for i, candidate := range bucket {
		if candidate == e {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(t.entries, e.key.Hash)
		return
	}
	t.entries[e.key.Hash] = bucket
}

// len returns the number of distinct values currently carried by at least one entity.
func (t *sharedTable) len() int {
	n := 0
	for _, bucket := range t.entries {
		n += len(bucket)
	}
	return n
}

var _ abstractColumn = &sharedColumn[types.Component]{}

// sharedRows is implemented by columns that store interned shared values.
type sharedRows interface {
	entry(row int) *sharedEntry
}

// sharedColumn stores, per row, a reference into the shared table of its component type instead of the value
// itself.
type sharedColumn[T types.Component] struct {
	table *sharedTable
	refs  []*sharedEntry
}

func newSharedColumnFactory[T types.Component](table *sharedTable) columnFactory {
	return func() abstractColumn {
		return &sharedColumn[T]{table: table, refs: make([]*sharedEntry, 0)}
	}
}

func (c *sharedColumn[T]) len() int {
	return len(c.refs)
}

func (c *sharedColumn[T]) name() string {
	return c.table.meta.Name()
}

func (c *sharedColumn[T]) extend() {
	c.refs = append(c.refs, nil)
}

func (c *sharedColumn[T]) validate(v types.Component) error {
	if _, ok := v.(T); !ok {
		return eris.Errorf("cannot store %T in column %q", v, c.name())
	}
	_, err := c.table.meta.Encode(v)
	return err
}

func (c *sharedColumn[T]) setAbstract(row int, v types.Component) {
	assert.That(row < len(c.refs), "column isn't extended when entity is created")
	// Acquire before releasing so a value set to itself is never dropped from the table.
	e := c.table.acquire(v)
	c.table.release(c.refs[row])
	c.refs[row] = e
}

func (c *sharedColumn[T]) getAbstract(row int) types.Component {
	assert.That(row < len(c.refs), "component doesn't exist")
	if c.refs[row] == nil {
		return nil
	}
	return c.refs[row].value
}

// entry returns the interned entry of a row.
func (c *sharedColumn[T]) entry(row int) *sharedEntry {
	return c.refs[row]
}

func (c *sharedColumn[T]) remove(row int) {
	assert.That(row < len(c.refs), "tried to remove component that doesn't exist")

	c.table.release(c.refs[row])
	lastIndex := len(c.refs) - 1
	c.refs[row] = c.refs[lastIndex]
	c.refs[lastIndex] = nil
	c.refs = c.refs[:lastIndex]
}
