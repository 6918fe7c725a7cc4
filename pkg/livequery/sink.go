package livequery

// Sink receives snapshots on the engine's delivery goroutine, one at
// a time. A slow Push backs up delivery but never blocks recomputes
// or rebinds.
type Sink[R any] interface {
	Push(result R)
}

// FuncSink adapts a function to Sink.
type FuncSink[R any] func(R)

func (f FuncSink[R]) Push(result R) {
	f(result)
}

// ChanSink exposes deliveries as a channel; handy in tests and for
// consumers that select on updates.
type ChanSink[R any] struct {
	C chan R
}

var _ = Sink[int](&ChanSink[int]{})

func NewChanSink[R any](buffer int) *ChanSink[R] {
	return &ChanSink[R]{C: make(chan R, buffer)}
}

func (s *ChanSink[R]) Push(result R) {
	s.C <- result
}
