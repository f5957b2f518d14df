package ecsquery

import (
	"reflect"
	"sync"
)

const bufferCapacity = 64

// pools holds one *sync.Pool of *[]T per element type.
var pools sync.Map

func poolFor[T any]() *sync.Pool {
	typ := reflect.TypeFor[T]()
	if p, ok := pools.Load(typ); ok {
		return p.(*sync.Pool)
	}
	p, _ := pools.LoadOrStore(typ, &sync.Pool{
		New: func() any {
			items := make([]T, 0, bufferCapacity)
			return &items
		},
	})
	return p.(*sync.Pool)
}

// Buffer is a caller-owned list of query results whose backing array is borrowed from a pool. It must be
// released once the caller is done with it, after which Items returns nil. A Buffer is not safe for concurrent
// use.
type Buffer[T any] struct {
	items    []T
	pool     *sync.Pool
	released bool
}

func newBuffer[T any]() *Buffer[T] {
	pool := poolFor[T]()
	items, _ := pool.Get().(*[]T)
	return &Buffer[T]{items: (*items)[:0], pool: pool}
}

// Items returns the results. The slice is only valid until Release.
func (b *Buffer[T]) Items() []T {
	if b.released {
		return nil
	}
	return b.items
}

func (b *Buffer[T]) Len() int {
	if b.released {
		return 0
	}
	return len(b.items)
}

// Release returns the backing array to the pool. Calling Release more than once is a no-op.
func (b *Buffer[T]) Release() {
	if b.released {
		return
	}
	b.released = true

	clear(b.items)
	items := b.items[:0]
	b.items = nil
	b.pool.Put(&items)
}

// clone copies the items into a slice owned by the caller and releases the buffer.
func (b *Buffer[T]) clone() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	b.Release()
	return out
}
