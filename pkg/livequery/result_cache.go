package livequery

import (
	"livesync/pkg/utils/syncutils"

	"4d63.com/optional"
)

// ResultCache is the guarded cell holding the last computed value.
// Empty means "must recompute before answering". All access goes
// through the accessors; no caller ever observes a partial write.
type ResultCache[T any] struct {
	mux syncutils.Mutex
	val optional.Optional[T]
}

func NewResultCache[T any]() *ResultCache[T] {
	return &ResultCache[T]{val: optional.Empty[T]()}
}

func (c *ResultCache[T]) Get() optional.Optional[T] {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.val
}

func (c *ResultCache[T]) Set(val optional.Optional[T]) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.val = val
}
