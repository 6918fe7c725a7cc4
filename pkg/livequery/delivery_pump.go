package livequery

import (
	"sync"

	"livesync/pkg/debug"
	"livesync/pkg/utils/syncutils"

	"github.com/gammazero/deque"
)

type taggedResult[R any] struct {
	result R
	gen    uint64
}

// deliveryPump serializes snapshot delivery on one goroutine, the
// designated delivery context consumers observe. Enqueue drops any
// snapshot tagged older than the newest generation already accepted,
// so deliveries are monotonic in generation; within a generation FIFO
// order preserves most-recently-completed-wins.
type deliveryPump[R any] struct {
	sink     Sink[R]
	wake     chan struct{}
	quit     chan struct{}
	wg       sync.WaitGroup
	mux      syncutils.Mutex
	queue    deque.Deque[taggedResult[R]]
	lastGen  uint64
	hasLast  bool
	lastSent uint64
	closed   bool
}

func newDeliveryPump[R any](sink Sink[R]) *deliveryPump[R] {
	p := &deliveryPump[R]{
		sink: sink,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *deliveryPump[R]) enqueue(gen uint64, result R) {
	p.mux.Lock()
	if p.closed || (p.hasLast && gen < p.lastGen) {
		p.mux.Unlock()
		return
	}
	p.lastGen = gen
	p.hasLast = true
	p.queue.PushBack(taggedResult[R]{gen: gen, result: result})
	p.mux.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *deliveryPump[R]) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case <-p.wake:
		}
		for {
			p.mux.Lock()
			if p.closed || p.queue.Len() == 0 {
				p.mux.Unlock()
				break
			}
			item := p.queue.PopFront()
			debug.Assert(item.gen >= p.lastSent, "delivery must be monotonic in generation")
			p.lastSent = item.gen
			p.mux.Unlock()
			p.sink.Push(item.result)
		}
	}
}

// close drops anything still queued and waits for the delivery
// goroutine; after it returns the sink sees no further pushes.
func (p *deliveryPump[R]) close() {
	p.mux.Lock()
	if p.closed {
		p.mux.Unlock()
		return
	}
	p.closed = true
	p.queue.Clear()
	p.mux.Unlock()
	close(p.quit)
	p.wg.Wait()
}
