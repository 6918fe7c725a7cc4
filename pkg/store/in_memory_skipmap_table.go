package store

import (
	"context"

	"livesync/pkg/utils"

	"4d63.com/optional"
	"github.com/zhangyunhao116/skipmap"
)

// InMemorySkipmapTable is the lock-free variant of the in-memory
// table, for read-heavy generators scanning while writers mutate.
type InMemorySkipmapTable[K, V any] struct {
	less LessFunc[K]
	rows *skipmap.FuncMap[K, V]
	name string
}

var _ = KeyValueStore[int, int](&InMemorySkipmapTable[int, int]{})

func NewInMemorySkipmapTable[K, V any](name string, lessFunc LessFunc[K]) *InMemorySkipmapTable[K, V] {
	return &InMemorySkipmapTable[K, V]{
		name: name,
		less: lessFunc,
		rows: skipmap.NewFunc[K, V](func(a, b K) bool { return lessFunc(a, b) }),
	}
}

func (st *InMemorySkipmapTable[K, V]) Name() string {
	return st.name
}

func (st *InMemorySkipmapTable[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	ret, exists := st.rows.Load(key)
	return ret, exists, nil
}

func (st *InMemorySkipmapTable[K, V]) Put(ctx context.Context, key K, value V) error {
	if utils.IsNil(value) {
		st.rows.Delete(key)
	} else {
		st.rows.Store(key, value)
	}
	return nil
}

func (st *InMemorySkipmapTable[K, V]) PutIfAbsent(ctx context.Context, key K, value V) (optional.Optional[V], error) {
	actual, loaded := st.rows.LoadOrStore(key, value)
	if loaded {
		return optional.Of(actual), nil
	}
	return optional.Empty[V](), nil
}

func (st *InMemorySkipmapTable[K, V]) Delete(ctx context.Context, key K) error {
	st.rows.Delete(key)
	return nil
}

func (st *InMemorySkipmapTable[K, V]) Range(ctx context.Context, from optional.Optional[K], to optional.Optional[K],
	iterFunc func(K, V) error,
) error {
	var iterErr error
	fromKey, hasFrom := from.Get()
	toKey, hasTo := to.Get()
	st.rows.Range(func(key K, value V) bool {
		if hasFrom && st.less(key, fromKey) {
			return true
		}
		if hasTo && st.less(toKey, key) {
			return false
		}
		if err := iterFunc(key, value); err != nil {
			iterErr = err
			return false
		}
		return true
	})
	return iterErr
}

func (st *InMemorySkipmapTable[K, V]) ApproximateNumEntries() (uint64, error) {
	return uint64(st.rows.Len()), nil
}
