package store

import (
	"context"

	"4d63.com/optional"
)

type LessFunc[K any] func(k1, k2 K) bool

// KeyValueStore is the contract shared by the table implementations.
// Range from/to are inclusive; an empty optional leaves that end open.
type KeyValueStore[K, V any] interface {
	Name() string
	Get(ctx context.Context, key K) (V, bool, error)
	Put(ctx context.Context, key K, value V) error
	PutIfAbsent(ctx context.Context, key K, value V) (optional.Optional[V], error)
	Delete(ctx context.Context, key K) error
	Range(ctx context.Context, from optional.Optional[K], to optional.Optional[K],
		iterFunc func(K, V) error) error
	ApproximateNumEntries() (uint64, error)
}

func IntLess(a, b int) bool {
	return a < b
}

func Uint64Less(a, b uint64) bool {
	return a < b
}

func StringLess(a, b string) bool {
	return a < b
}
