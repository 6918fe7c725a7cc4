package livequery

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"livesync/pkg/common_errors"
	"livesync/pkg/notify"
	"livesync/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type post struct {
	Name string
	ID   int
}

func recvLive[T any](t *testing.T, sink *ChanSink[LiveResult[T]]) LiveResult[T] {
	t.Helper()
	select {
	case r := <-sink.C:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		panic("unreachable")
	}
}

func expectNoLive[T any](t *testing.T, sink *ChanSink[LiveResult[T]]) {
	t.Helper()
	select {
	case r := <-sink.C:
		t.Fatalf("unexpected delivery: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func scanPosts(tab *store.TableHandle) Generator[post] {
	return func(ctx context.Context, st store.Store) ([]post, error) {
		results := []post{}
		err := tab.Scan(ctx, func(_ store.PrimaryKeyValues, value interface{}) error {
			results = append(results, value.(post))
			return nil
		})
		return results, err
	}
}

func TestSubscribeDeliversInitialLoadThenUpdates(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewChangeBus()
	st := store.NewInMemoryStore("db", bus)
	tab := st.Table("Post")
	require.NoError(t, tab.Put(ctx, store.PK(1), post{ID: 1, Name: "A"}))

	sink := NewChanSink[LiveResult[post]](64)
	engine, err := NewLiveQueryEngine[post](bus, sink)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Subscribe(ctx, st, "Post", scanPosts(tab)))

	first := recvLive(t, sink)
	assert.True(t, first.HasLoadedOnce)
	assert.Equal(t, []post{{ID: 1, Name: "A"}}, first.Results)

	require.NoError(t, tab.Put(ctx, store.PK(1), post{ID: 1, Name: "B"}))
	second := recvLive(t, sink)
	assert.True(t, second.HasLoadedOnce)
	assert.Equal(t, []post{{ID: 1, Name: "B"}}, second.Results)
}

func TestAbsentStorePublishesEmptyUnloaded(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewChangeBus()
	sink := NewChanSink[LiveResult[post]](64)
	engine, err := NewLiveQueryEngine[post](bus, sink)
	require.NoError(t, err)
	defer engine.Close()

	var calls int32
	counting := func(ctx context.Context, st store.Store) ([]post, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}
	require.NoError(t, engine.Subscribe(ctx, nil, "Post", counting))

	res := recvLive(t, sink)
	assert.False(t, res.HasLoadedOnce)
	assert.Equal(t, []post{}, res.Results)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestRepeatSubscribeIsNoOp(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewChangeBus()
	st := store.NewInMemoryStore("db", bus)
	tab := st.Table("Post")

	sink := NewChanSink[LiveResult[post]](64)
	engine, err := NewLiveQueryEngine[post](bus, sink)
	require.NoError(t, err)
	defer engine.Close()

	var calls int32
	gen := func(ctx context.Context, s store.Store) ([]post, error) {
		atomic.AddInt32(&calls, 1)
		return scanPosts(tab)(ctx, s)
	}
	require.NoError(t, engine.Subscribe(ctx, st, "Post", gen))
	recvLive(t, sink)
	require.NoError(t, engine.Subscribe(ctx, st, "Post", gen))
	expectNoLive(t, sink)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSupersededGeneratorNeverDelivered(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewChangeBus()
	st := store.NewInMemoryStore("db", bus)

	sink := NewChanSink[LiveResult[string]](64)
	engine, err := NewLiveQueryEngine[string](bus, sink)
	require.NoError(t, err)
	defer engine.Close()

	g1Started := make(chan struct{})
	g1Release := make(chan struct{})
	g1 := func(ctx context.Context, s store.Store) ([]string, error) {
		close(g1Started)
		<-g1Release
		return []string{"slow"}, nil
	}
	g2 := func(ctx context.Context, s store.Store) ([]string, error) {
		return []string{"fast"}, nil
	}

	require.NoError(t, engine.Subscribe(ctx, st, "Post", g1))
	<-g1Started
	require.NoError(t, engine.Subscribe(ctx, st, "Post", g2))

	res := recvLive(t, sink)
	assert.Equal(t, []string{"fast"}, res.Results)

	// G1 finishes late; its generation is stale, so nothing arrives.
	close(g1Release)
	expectNoLive(t, sink)
}

func TestConcurrentGeneratorExecutionsNeverExceedOne(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewChangeBus()
	st := store.NewInMemoryStore("db", bus)
	tab := st.Table("Post")

	sink := NewChanSink[LiveResult[post]](1024)
	engine, err := NewLiveQueryEngine[post](bus, sink)
	require.NoError(t, err)
	defer engine.Close()

	var active, maxActive int32
	gen := func(ctx context.Context, s store.Store) ([]post, error) {
		cur := atomic.AddInt32(&active, 1)
		for {
			prev := atomic.LoadInt32(&maxActive)
			if cur <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		defer atomic.AddInt32(&active, -1)
		return scanPosts(tab)(ctx, s)
	}
	require.NoError(t, engine.Subscribe(ctx, st, "Post", gen))

	g := errgroup.Group{}
	for w := 0; w < 4; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < 25; i++ {
				if err := tab.Put(ctx, store.PK(w), post{ID: w, Name: "final"}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// drain until the snapshot reflects all four writers
	deadline := time.After(2 * time.Second)
	for {
		select {
		case res := <-sink.C:
			if len(res.Results) == 4 {
				assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
				return
			}
		case <-deadline:
			t.Fatal("never observed the final snapshot")
		}
	}
}

func TestHasLoadedOnceResetsOnlyOnRebind(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewChangeBus()
	st := store.NewInMemoryStore("db", bus)
	tab := st.Table("Post")
	require.NoError(t, tab.Put(ctx, store.PK(1), post{ID: 1, Name: "A"}))

	sink := NewChanSink[LiveResult[post]](64)
	engine, err := NewLiveQueryEngine[post](bus, sink)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Subscribe(ctx, st, "Post", scanPosts(tab)))
	assert.True(t, recvLive(t, sink).HasLoadedOnce)

	require.NoError(t, tab.Put(ctx, store.PK(2), post{ID: 2, Name: "B"}))
	assert.True(t, recvLive(t, sink).HasLoadedOnce)

	// replacing the binding with an absent store is the only way back
	require.NoError(t, engine.Subscribe(ctx, nil, "Post", nil))
	assert.False(t, recvLive(t, sink).HasLoadedOnce)
}

func TestGeneratorFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewChangeBus()
	st := store.NewInMemoryStore("db", bus)
	tab := st.Table("Post")

	sink := NewChanSink[LiveResult[post]](64)
	engine, err := NewLiveQueryEngine[post](bus, sink)
	require.NoError(t, err)
	defer engine.Close()

	var fail int32 = 1
	gen := func(ctx context.Context, s store.Store) ([]post, error) {
		if atomic.LoadInt32(&fail) == 1 {
			return nil, xerrors.New("disk on fire")
		}
		return scanPosts(tab)(ctx, s)
	}
	require.NoError(t, engine.Subscribe(ctx, st, "Post", gen))
	expectNoLive(t, sink)

	atomic.StoreInt32(&fail, 0)
	require.NoError(t, tab.Put(ctx, store.PK(1), post{ID: 1, Name: "A"}))
	res := recvLive(t, sink)
	assert.True(t, res.HasLoadedOnce)
	assert.Equal(t, []post{{ID: 1, Name: "A"}}, res.Results)
}

func TestRefreshRepublishesWithoutRecompute(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewChangeBus()
	st := store.NewInMemoryStore("db", bus)
	tab := st.Table("Post")
	require.NoError(t, tab.Put(ctx, store.PK(1), post{ID: 1, Name: "A"}))

	sink := NewChanSink[LiveResult[post]](64)
	engine, err := NewLiveQueryEngine[post](bus, sink)
	require.NoError(t, err)
	defer engine.Close()

	var calls int32
	gen := func(ctx context.Context, s store.Store) ([]post, error) {
		atomic.AddInt32(&calls, 1)
		return scanPosts(tab)(ctx, s)
	}
	require.NoError(t, engine.Subscribe(ctx, st, "Post", gen))
	first := recvLive(t, sink)

	engine.Refresh()
	second := recvLive(t, sink)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCloseStopsDelivery(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewChangeBus()
	st := store.NewInMemoryStore("db", bus)
	tab := st.Table("Post")

	sink := NewChanSink[LiveResult[post]](64)
	engine, err := NewLiveQueryEngine[post](bus, sink)
	require.NoError(t, err)

	require.NoError(t, engine.Subscribe(ctx, st, "Post", scanPosts(tab)))
	recvLive(t, sink)

	engine.Close()
	require.NoError(t, tab.Put(ctx, store.PK(9), post{ID: 9, Name: "late"}))
	expectNoLive(t, sink)

	err = engine.Subscribe(ctx, st, "Post", scanPosts(tab))
	assert.True(t, common_errors.IsEngineClosedError(err))
	// double close is safe
	engine.Close()
}

func TestSubscribeRejectsNilGenerator(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewChangeBus()
	st := store.NewInMemoryStore("db", bus)
	sink := NewChanSink[LiveResult[post]](64)
	engine, err := NewLiveQueryEngine[post](bus, sink)
	require.NoError(t, err)
	defer engine.Close()

	assert.Equal(t, common_errors.ErrNilGenerator, engine.Subscribe(ctx, st, "Post", nil))
}

func TestEventForOtherStoreIgnored(t *testing.T) {
	ctx := context.Background()
	bus := notify.NewChangeBus()
	bound := store.NewInMemoryStore("bound", bus)
	other := store.NewInMemoryStore("other", bus)
	tab := bound.Table("Post")

	sink := NewChanSink[LiveResult[post]](64)
	engine, err := NewLiveQueryEngine[post](bus, sink)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Subscribe(ctx, bound, "Post", scanPosts(tab)))
	recvLive(t, sink)

	require.NoError(t, other.Table("Post").Put(ctx, store.PK(1), post{ID: 1}))
	expectNoLive(t, sink)
}
