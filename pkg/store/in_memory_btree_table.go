package store

import (
	"context"

	"livesync/pkg/utils"
	"livesync/pkg/utils/syncutils"

	"4d63.com/optional"
	"github.com/google/btree"
)

type kvPair[K, V any] struct {
	key K
	val V
}

// InMemoryBTreeTable keeps rows ordered by key in a btree behind one
// mutex. Putting a nil value deletes the key.
type InMemoryBTreeTable[K, V any] struct {
	mux  syncutils.Mutex
	less LessFunc[K]
	rows *btree.BTreeG[kvPair[K, V]]
	name string
}

var _ = KeyValueStore[int, int](&InMemoryBTreeTable[int, int]{})

func NewInMemoryBTreeTable[K, V any](name string, lessFunc LessFunc[K]) *InMemoryBTreeTable[K, V] {
	return &InMemoryBTreeTable[K, V]{
		name: name,
		less: lessFunc,
		rows: btree.NewG(2, btree.LessFunc[kvPair[K, V]](
			func(a, b kvPair[K, V]) bool {
				return lessFunc(a.key, b.key)
			})),
	}
}

func (st *InMemoryBTreeTable[K, V]) Name() string {
	return st.name
}

func (st *InMemoryBTreeTable[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	st.mux.Lock()
	defer st.mux.Unlock()
	ret, exists := st.rows.Get(kvPair[K, V]{key: key})
	return ret.val, exists, nil
}

func (st *InMemoryBTreeTable[K, V]) Put(ctx context.Context, key K, value V) error {
	st.mux.Lock()
	defer st.mux.Unlock()
	if utils.IsNil(value) {
		st.rows.Delete(kvPair[K, V]{key: key})
	} else {
		st.rows.ReplaceOrInsert(kvPair[K, V]{key: key, val: value})
	}
	return nil
}

func (st *InMemoryBTreeTable[K, V]) PutIfAbsent(ctx context.Context, key K, value V) (optional.Optional[V], error) {
	st.mux.Lock()
	defer st.mux.Unlock()
	original, exists := st.rows.Get(kvPair[K, V]{key: key})
	if !exists {
		st.rows.ReplaceOrInsert(kvPair[K, V]{key: key, val: value})
		return optional.Empty[V](), nil
	}
	return optional.Of(original.val), nil
}

func (st *InMemoryBTreeTable[K, V]) Delete(ctx context.Context, key K) error {
	st.mux.Lock()
	defer st.mux.Unlock()
	st.rows.Delete(kvPair[K, V]{key: key})
	return nil
}

func (st *InMemoryBTreeTable[K, V]) Range(ctx context.Context, from optional.Optional[K], to optional.Optional[K],
	iterFunc func(K, V) error,
) error {
	st.mux.Lock()
	defer st.mux.Unlock()
	var iterErr error
	toKey, hasTo := to.Get()
	iter := func(p kvPair[K, V]) bool {
		if hasTo && st.less(toKey, p.key) {
			return false
		}
		if err := iterFunc(p.key, p.val); err != nil {
			iterErr = err
			return false
		}
		return true
	}
	if fromKey, ok := from.Get(); ok {
		st.rows.AscendGreaterOrEqual(kvPair[K, V]{key: fromKey}, iter)
	} else {
		st.rows.Ascend(iter)
	}
	return iterErr
}

func (st *InMemoryBTreeTable[K, V]) ApproximateNumEntries() (uint64, error) {
	st.mux.Lock()
	defer st.mux.Unlock()
	return uint64(st.rows.Len()), nil
}
