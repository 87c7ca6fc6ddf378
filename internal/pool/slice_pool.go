package pool

import "sync"

// SlicePool pools same-typed slices to reduce allocations in hot loops, such
// as the sorter's batch buffers and the clustering work queue.
type SlicePool[T any] struct {
	pool sync.Pool
}

// NewSlicePool creates an empty pool for slices of T.
func NewSlicePool[T any]() *SlicePool[T] {
	return &SlicePool[T]{
		pool: sync.Pool{
			New: func() any { s := make([]T, 0); return &s },
		},
	}
}

// Get retrieves and resizes a slice from the pool.
//
// The returned slice will have the exact length specified by size. If the
// pooled slice has insufficient capacity, a new slice is allocated instead.
// The caller must call the returned cleanup function (typically with defer)
// to return the slice to the pool.
func (p *SlicePool[T]) Get(size int) ([]T, func()) {
	ptr, _ := p.pool.Get().(*[]T)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]T, size)
	} else {
		slice = slice[:size]
	}
	*ptr = slice

	return slice, func() { p.pool.Put(ptr) }
}
