package livequery

import (
	"context"
	"reflect"
	"time"

	"livesync/pkg/common_errors"
	"livesync/pkg/notify"
	"livesync/pkg/stats"
	"livesync/pkg/store"
	"livesync/pkg/utils/syncutils"

	"4d63.com/optional"
	"github.com/rs/zerolog/log"
)

// LiveQueryEngine bridges a fallible, possibly slow generator to a
// continuously updated subscriber. Each Subscribe call with changed
// parameters fully supersedes the previous binding: the old notifier
// subscription is cancelled first, the generation counter advances,
// and any in-flight recompute is discarded at completion time.
//
// All shared state sits behind one mutex; generator execution always
// runs outside it, so a slow read never blocks a concurrent rebind.
type LiveQueryEngine[T any] struct {
	notifier notify.Notifier
	pump     *deliveryPump[LiveResult[T]]
	cache    *ResultCache[[]T]
	lat      *stats.ConcurrentStatsCollector[time.Duration]

	mux         syncutils.Mutex
	ctx         context.Context
	st          store.Store
	tableKey    string
	generator   Generator[T]
	generatorID uintptr
	sub         *notify.Handle
	gen         uint64
	cacheEpoch  uint64
	running     bool
	pending     bool
	loaded      bool
	closed      bool
}

func NewLiveQueryEngine[T any](notifier notify.Notifier, sink Sink[LiveResult[T]]) (*LiveQueryEngine[T], error) {
	if sink == nil {
		return nil, common_errors.ErrNilSink
	}
	return &LiveQueryEngine[T]{
		notifier: notifier,
		pump:     newDeliveryPump[LiveResult[T]](sink),
		cache:    NewResultCache[[]T](),
		lat:      stats.NewConcurrentStatsCollector[time.Duration]("live_query_recompute", stats.DEFAULT_COLLECT_DURATION),
	}, nil
}

// Subscribe binds the engine to (st, tableKey, generator). A nil st
// is the absent-store state: the current subscription is cancelled
// and an empty, unloaded snapshot is published. Repeating a call with
// unchanged store identity, table key and generator function is a
// no-op. ctx is threaded into every generator run of this binding.
func (e *LiveQueryEngine[T]) Subscribe(ctx context.Context, st store.Store, tableKey string, generator Generator[T]) error {
	if st != nil && generator == nil {
		return common_errors.ErrNilGenerator
	}
	var generatorID uintptr
	if generator != nil {
		generatorID = reflect.ValueOf(generator).Pointer()
	}

	e.mux.Lock()
	if e.closed {
		e.mux.Unlock()
		return common_errors.ErrEngineClosed
	}
	if st != nil && st == e.st && tableKey == e.tableKey && generatorID == e.generatorID {
		e.mux.Unlock()
		return nil
	}
	e.gen++
	gen := e.gen
	old := e.sub
	e.sub = nil
	e.running = false
	e.pending = false
	e.loaded = false
	e.invalidateLocked()
	if st == nil {
		e.st = nil
		e.tableKey = tableKey
		e.generator = nil
		e.generatorID = 0
		e.mux.Unlock()
		if old != nil {
			e.notifier.Cancel(old)
		}
		e.pump.enqueue(gen, LiveResult[T]{Results: []T{}, HasLoadedOnce: false})
		return nil
	}
	e.ctx = ctx
	e.st = st
	e.tableKey = tableKey
	e.generator = generator
	e.generatorID = generatorID
	e.mux.Unlock()

	// cancel-then-resubscribe: the old handle is dead before the new
	// one exists, so no event is ever attributed to the wrong binding.
	if old != nil {
		e.notifier.Cancel(old)
	}
	sub := e.notifier.Subscribe(st, tableKey, optional.Empty[store.PrimaryKeyValues](),
		func() { e.onChange(gen) })

	e.mux.Lock()
	if e.closed || e.gen != gen {
		e.mux.Unlock()
		e.notifier.Cancel(sub)
		return nil
	}
	e.sub = sub
	e.scheduleLocked(gen)
	e.mux.Unlock()
	return nil
}

// Refresh republishes the last known snapshot, or recomputes when the
// cache is unknown. No-op while unbound or torn down.
func (e *LiveQueryEngine[T]) Refresh() {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.closed || e.st == nil {
		return
	}
	e.scheduleLocked(e.gen)
}

// Close tears the engine down: the subscription is cancelled and no
// delivery happens after Close returns. In-flight recomputes are
// orphaned by the generation bump and discard themselves.
func (e *LiveQueryEngine[T]) Close() {
	e.mux.Lock()
	if e.closed {
		e.mux.Unlock()
		return
	}
	e.closed = true
	e.gen++
	old := e.sub
	e.sub = nil
	e.mux.Unlock()
	if old != nil {
		e.notifier.Cancel(old)
	}
	e.pump.close()
}

func (e *LiveQueryEngine[T]) onChange(gen uint64) {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.closed || gen != e.gen {
		return
	}
	e.invalidateLocked()
	e.scheduleLocked(gen)
}

func (e *LiveQueryEngine[T]) invalidateLocked() {
	e.cache.Set(optional.Empty[[]T]())
	e.cacheEpoch++
}

// scheduleLocked is the recompute trigger. Cache warm: republish
// without running the generator. Cache cold: launch one recompute,
// or flag a trailing-edge rerun when one is already in flight.
func (e *LiveQueryEngine[T]) scheduleLocked(gen uint64) {
	if cached, ok := e.cache.Get().Get(); ok {
		e.pump.enqueue(gen, LiveResult[T]{Results: cached, HasLoadedOnce: e.loaded})
		return
	}
	if e.running {
		e.pending = true
		return
	}
	e.running = true
	go e.recompute(gen, e.cacheEpoch, e.ctx, e.st, e.generator)
}

func (e *LiveQueryEngine[T]) recompute(gen uint64, epoch uint64, ctx context.Context,
	st store.Store, generator Generator[T],
) {
	start := stats.LatStart()
	results, err := generator(ctx, st)
	e.lat.AddSample(time.Since(start))

	e.mux.Lock()
	defer e.mux.Unlock()
	if e.closed || gen != e.gen {
		// superseded while executing; never delivered or cached
		log.Debug().Uint64("gen", gen).Uint64("current", e.gen).
			Msg("discarding stale recompute")
		return
	}
	e.running = false
	if err != nil {
		log.Warn().Err(err).Str("table", e.tableKey).
			Msg("live query recompute failed; previous snapshot stays authoritative")
	} else {
		if epoch == e.cacheEpoch {
			e.cache.Set(optional.Of(results))
		}
		e.loaded = true
		e.pump.enqueue(gen, LiveResult[T]{Results: results, HasLoadedOnce: true})
	}
	if e.pending {
		e.pending = false
		e.scheduleLocked(gen)
	}
}
