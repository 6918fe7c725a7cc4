package livequery

import (
	"context"

	"livesync/pkg/store"

	"4d63.com/optional"
)

// LiveResult is the snapshot pushed for a multi-row binding.
// HasLoadedOnce flips false to true at most once per binding lifetime
// and only resets when the binding itself is replaced.
type LiveResult[T any] struct {
	Results       []T
	HasLoadedOnce bool
}

// InstanceResult is the snapshot pushed for a single-row binding. An
// empty Instance with HasLoadedOnce set means the row does not exist.
type InstanceResult[T any] struct {
	Instance      optional.Optional[T]
	HasLoadedOnce bool
}

// Generator computes the full result sequence from the store. It runs
// outside the engine lock, may suspend, and its result is discarded
// when its generation has been superseded by completion time.
type Generator[T any] func(ctx context.Context, st store.Store) ([]T, error)

// RowReader reads exactly one row. Empty result means the row is
// absent, which is not an error.
type RowReader[T any] func(ctx context.Context, st store.Store, table string,
	key store.PrimaryKeyValues) (optional.Optional[T], error)
