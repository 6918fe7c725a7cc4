package livequery

import (
	"context"
	"time"

	"livesync/pkg/common_errors"
	"livesync/pkg/notify"
	"livesync/pkg/stats"
	"livesync/pkg/store"
	"livesync/pkg/utils/syncutils"

	"4d63.com/optional"
	"github.com/rs/zerolog/log"
)

// InstanceTracker keeps one row, identified by an exact primary-key
// tuple, in sync. It moves through Unbound -> Bound -> Bound* ->
// TornDown; every Bind fully supersedes the previous binding. An
// absent row is a valid state and is delivered as an empty instance,
// never as an error.
type InstanceTracker[T any] struct {
	notifier notify.Notifier
	reader   RowReader[T]
	pump     *deliveryPump[InstanceResult[T]]
	cache    *ResultCache[optional.Optional[T]]
	lat      *stats.ConcurrentStatsCollector[time.Duration]

	mux        syncutils.Mutex
	ctx        context.Context
	st         store.Store
	tableKey   string
	key        store.PrimaryKeyValues
	sub        *notify.Handle
	gen        uint64
	cacheEpoch uint64
	running    bool
	pending    bool
	loaded     bool
	enabled    bool
	closed     bool
}

func NewInstanceTracker[T any](notifier notify.Notifier, reader RowReader[T],
	sink Sink[InstanceResult[T]],
) (*InstanceTracker[T], error) {
	if reader == nil {
		return nil, common_errors.ErrNilRowReader
	}
	if sink == nil {
		return nil, common_errors.ErrNilSink
	}
	return &InstanceTracker[T]{
		notifier: notifier,
		reader:   reader,
		pump:     newDeliveryPump[InstanceResult[T]](sink),
		cache:    NewResultCache[optional.Optional[T]](),
		lat:      stats.NewConcurrentStatsCollector[time.Duration]("instance_row_read", stats.DEFAULT_COLLECT_DURATION),
		enabled:  true,
	}, nil
}

// Bind supersedes any prior binding with (st, tableKey, key) and
// schedules an immediate read of exactly that row. A nil st is the
// absent-store state. Rebinding with identical parameters is a no-op.
func (e *InstanceTracker[T]) Bind(ctx context.Context, st store.Store, tableKey string, key store.PrimaryKeyValues) error {
	if st != nil && len(key) == 0 {
		return common_errors.ErrEmptyPrimaryKey
	}

	e.mux.Lock()
	if e.closed {
		e.mux.Unlock()
		return common_errors.ErrEngineClosed
	}
	if st != nil && st == e.st && tableKey == e.tableKey && key.Equal(e.key) {
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
		e.key = nil
		e.mux.Unlock()
		if old != nil {
			e.notifier.Cancel(old)
		}
		e.pump.enqueue(gen, InstanceResult[T]{Instance: optional.Empty[T](), HasLoadedOnce: false})
		return nil
	}
	e.ctx = ctx
	e.st = st
	e.tableKey = tableKey
	e.key = key
	e.mux.Unlock()

	if old != nil {
		e.notifier.Cancel(old)
	}
	sub := e.notifier.Subscribe(st, tableKey, optional.Of(key),
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

// SetUpdatesEnabled gates change events. While disabled, events are
// ignored entirely; flipping back to enabled schedules exactly one
// fresh read of current state. Events buffered nowhere, deliberately:
// only current truth is fetched.
func (e *InstanceTracker[T]) SetUpdatesEnabled(enabled bool) {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.closed || e.enabled == enabled {
		return
	}
	e.enabled = enabled
	if enabled && e.st != nil {
		e.invalidateLocked()
		e.scheduleLocked(e.gen)
	}
}

func (e *InstanceTracker[T]) UpdatesEnabled() bool {
	e.mux.Lock()
	defer e.mux.Unlock()
	return e.enabled
}

// Refresh republishes the last known instance, or re-reads when the
// cache is unknown. No-op while unbound or torn down.
func (e *InstanceTracker[T]) Refresh() {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.closed || e.st == nil {
		return
	}
	e.scheduleLocked(e.gen)
}

// Close tears the tracker down; no delivery after Close returns.
func (e *InstanceTracker[T]) Close() {
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

func (e *InstanceTracker[T]) onChange(gen uint64) {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.closed || gen != e.gen || !e.enabled {
		return
	}
	e.invalidateLocked()
	e.scheduleLocked(gen)
}

func (e *InstanceTracker[T]) invalidateLocked() {
	e.cache.Set(optional.Empty[optional.Optional[T]]())
	e.cacheEpoch++
}

func (e *InstanceTracker[T]) scheduleLocked(gen uint64) {
	if cached, ok := e.cache.Get().Get(); ok {
		e.pump.enqueue(gen, InstanceResult[T]{Instance: cached, HasLoadedOnce: e.loaded})
		return
	}
	if e.running {
		e.pending = true
		return
	}
	e.running = true
	go e.read(gen, e.cacheEpoch, e.ctx, e.st, e.tableKey, e.key)
}

func (e *InstanceTracker[T]) read(gen uint64, epoch uint64, ctx context.Context,
	st store.Store, tableKey string, key store.PrimaryKeyValues,
) {
	start := stats.LatStart()
	row, err := e.reader(ctx, st, tableKey, key)
	e.lat.AddSample(time.Since(start))

	e.mux.Lock()
	defer e.mux.Unlock()
	if e.closed || gen != e.gen {
		log.Debug().Uint64("gen", gen).Uint64("current", e.gen).
			Msg("discarding stale row read")
		return
	}
	e.running = false
	if err != nil {
		log.Warn().Err(err).Str("table", tableKey).Str("key", key.String()).
			Msg("row read failed; previous snapshot stays authoritative")
	} else {
		if epoch == e.cacheEpoch {
			e.cache.Set(optional.Of(row))
		}
		e.loaded = true
		e.pump.enqueue(gen, InstanceResult[T]{Instance: row, HasLoadedOnce: true})
	}
	if e.pending {
		e.pending = false
		e.scheduleLocked(gen)
	}
}
