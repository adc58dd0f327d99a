// Package pool is a strongly typed wrapper around sync.Pool with optional
// Reset() support. It eliminates the unsafe type assertions a bare
// sync.Pool forces on every caller: objects returned from Get() are
// guaranteed to be the correct type, and if the pooled type implements
// Resettable it is zeroed before being returned to the pool via Put().
//
// The gateway uses this for the []byte buffers LB.forward streams response
// bodies through - one NewLitePool[*[]byte] shared across every request,
// avoiding one allocation per proxied response:
//
//	bufferPool := pool.NewLitePool(func() *[]byte {
//		buf := make([]byte, DefaultStreamBufferSize)
//		return &buf
//	})
//	buf := bufferPool.Get()
//	defer bufferPool.Put(buf)
package pool

import "sync"

type Resettable interface {
	Reset()
}

type Pool[T any] struct {
	pool sync.Pool
	new  func() T
}

func NewLitePool[T any](newFn func() T) *Pool[T] {
	if newFn == nil {
		panic("litepool: constructor must not be nil")
	}
	// Validate early that the result is non-nil
	test := newFn()
	if any(test) == nil {
		panic("litepool: constructor returned nil")
	}

	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				v := newFn()
				if any(v) == nil {
					panic("litepool: constructor returned nil")
				}
				return v
			},
		},
		new: newFn,
	}
}

func (p *Pool[T]) Get() T {
	//nolint:forcetypeassert // safe due to validated New
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(v T) {
	if r, ok := any(v).(Resettable); ok {
		r.Reset()
	}
	p.pool.Put(v)
}
