package notify

import (
	"sync/atomic"

	"livesync/pkg/store"
	"livesync/pkg/utils/syncutils"

	"4d63.com/optional"
	"github.com/zhangyunhao116/skipmap"
)

// ChangeBus is the in-process notifier reference implementation.
// Fan-out runs synchronously on the publisher's goroutine while the
// table's subscriber lock is held for reading; Cancel takes the write
// lock, so once Cancel returns the callback will not run again.
// Cancel must therefore not be called from inside a callback.
type ChangeBus struct {
	tables *skipmap.StringMap[*tableSubscribers]
	nextID uint64
}

var _ = Notifier(&ChangeBus{})

type tableSubscribers struct {
	mux   syncutils.RWMutex
	all   map[uint64]*Handle
	byKey map[uint64]map[uint64]*Handle
}

func NewChangeBus() *ChangeBus {
	return &ChangeBus{
		tables: skipmap.NewString[*tableSubscribers](),
	}
}

func (b *ChangeBus) subscribersFor(table string) *tableSubscribers {
	ts, _ := b.tables.LoadOrStoreLazy(table, func() *tableSubscribers {
		return &tableSubscribers{
			all:   make(map[uint64]*Handle),
			byKey: make(map[uint64]map[uint64]*Handle),
		}
	})
	return ts
}

func (b *ChangeBus) Subscribe(st store.Store, table string,
	key optional.Optional[store.PrimaryKeyValues], fn Callback,
) *Handle {
	h := &Handle{
		id:    atomic.AddUint64(&b.nextID, 1),
		st:    st,
		table: table,
		fn:    fn,
	}
	if keyVal, ok := key.Get(); ok {
		h.keyScoped = true
		h.keyHash = keyVal.Hash()
	}
	ts := b.subscribersFor(table)
	ts.mux.Lock()
	defer ts.mux.Unlock()
	if h.keyScoped {
		subs, ok := ts.byKey[h.keyHash]
		if !ok {
			subs = make(map[uint64]*Handle)
			ts.byKey[h.keyHash] = subs
		}
		subs[h.id] = h
	} else {
		ts.all[h.id] = h
	}
	return h
}

func (b *ChangeBus) Cancel(h *Handle) {
	if h == nil || h.cancelled.Swap(true) {
		return
	}
	ts, ok := b.tables.Load(h.table)
	if !ok {
		return
	}
	ts.mux.Lock()
	defer ts.mux.Unlock()
	if h.keyScoped {
		if subs, ok := ts.byKey[h.keyHash]; ok {
			delete(subs, h.id)
			if len(subs) == 0 {
				delete(ts.byKey, h.keyHash)
			}
		}
	} else {
		delete(ts.all, h.id)
	}
}

// Publish fans a change event out to the table's subscribers. A
// row-keyed event reaches table-wide subscribers plus the matching
// key-scoped ones; a keyless event reaches every subscriber of the
// table. Subscriptions bound to a different store identity are
// skipped.
func (b *ChangeBus) Publish(st store.Store, table string,
	key optional.Optional[store.PrimaryKeyValues],
) {
	ts, ok := b.tables.Load(table)
	if !ok {
		return
	}
	ts.mux.RLock()
	defer ts.mux.RUnlock()
	for _, h := range ts.all {
		b.invoke(h, st)
	}
	if keyVal, found := key.Get(); found {
		for _, h := range ts.byKey[keyVal.Hash()] {
			b.invoke(h, st)
		}
	} else {
		for _, subs := range ts.byKey {
			for _, h := range subs {
				b.invoke(h, st)
			}
		}
	}
}

func (b *ChangeBus) invoke(h *Handle, st store.Store) {
	if h.cancelled.Get() || h.st != st {
		return
	}
	h.fn()
}
