package source

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultLoopResolution is the probe interval used to sample scheduler latency.
const DefaultLoopResolution = 10 * time.Millisecond

// GoRuntimeSource is the RawSource backed by the Go runtime.
//
// GC cycles are detected with a self re-arming finalizer: every cycle the
// finalizer wakes a watcher goroutine, which reads runtime.MemStats and emits
// one event per cycle completed since the previous wake. Scheduler latency is
// measured by a probe goroutine that sleeps for a fixed resolution and records
// how late it was woken.
type GoRuntimeSource struct {
	logger     *zap.Logger
	resolution time.Duration

	mu      sync.Mutex
	ctx     context.Context
	handler func(GCEvent)
	loop    LoopUsage

	stopped atomic.Bool
	wake    chan struct{}

	lastNumGC  uint32
	lastForced uint32
}

// Option configures a GoRuntimeSource.
type Option func(*GoRuntimeSource)

// WithLogger sets the logger used by the source.
func WithLogger(logger *zap.Logger) Option {
	return func(s *GoRuntimeSource) { s.logger = logger }
}

// WithLoopResolution sets the scheduler latency probe interval.
func WithLoopResolution(d time.Duration) Option {
	return func(s *GoRuntimeSource) {
		if d > 0 {
			s.resolution = d
		}
	}
}

// NewGoRuntimeSource creates an unstarted source.
func NewGoRuntimeSource(opts ...Option) *GoRuntimeSource {
	s := &GoRuntimeSource{
		logger:     zap.NewNop(),
		resolution: DefaultLoopResolution,
		wake:       make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches the latency probe. Cancelling ctx stops the probe and the
// GC watcher and disarms the finalizer.
func (s *GoRuntimeSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return ErrAlreadyStarted
	}
	s.ctx = ctx

	go func() {
		<-ctx.Done()
		s.stopped.Store(true)
	}()
	go s.probe(ctx)

	s.logger.Debug("Runtime source started", zap.Duration("loop_resolution", s.resolution))
	return nil
}

// SubscribeGC registers handler and starts watching for GC cycles. Cycles
// completed before the subscription are not reported.
func (s *GoRuntimeSource) SubscribeGC(handler func(GCEvent)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return ErrNotStarted
	}
	if s.handler != nil {
		return ErrAlreadySubscribed
	}
	s.handler = handler

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.lastNumGC, s.lastForced = ms.NumGC, ms.NumForcedGC

	runtime.SetFinalizer(&sentinel{src: s}, onCycle)
	go s.watch(s.ctx, handler)
	return nil
}

// LoopMetrics returns the latency observed since the previous call.
func (s *GoRuntimeSource) LoopMetrics() LoopMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := LoopMetrics{Usage: s.loop}
	s.loop = LoopUsage{}
	return m
}

// sentinel carries a pointer so it is never placed in the tiny allocator,
// whose blocks may delay finalizers indefinitely.
type sentinel struct {
	src *GoRuntimeSource
}

func onCycle(sn *sentinel) {
	if sn.src.stopped.Load() {
		return
	}
	select {
	case sn.src.wake <- struct{}{}:
	default:
	}
	runtime.SetFinalizer(sn, onCycle)
}

func (s *GoRuntimeSource) watch(ctx context.Context, handler func(GCEvent)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			events := gcEventsSince(&ms, s.lastNumGC, s.lastForced)
			s.lastNumGC, s.lastForced = ms.NumGC, ms.NumForcedGC
			for _, ev := range events {
				handler(ev)
			}
		}
	}
}

// gcEventsSince builds one event per cycle completed after lastNumGC. Pause
// times come from the PauseNs ring; cycles that have already been overwritten
// are reported with a zero duration. Forced cycles cannot be told apart
// individually, so the newest NumForcedGC delta cycles are marked forced.
func gcEventsSince(ms *runtime.MemStats, lastNumGC, lastForced uint32) []GCEvent {
	n := ms.NumGC - lastNumGC
	if n == 0 {
		return nil
	}
	forced := ms.NumForcedGC - lastForced
	if forced > n {
		forced = n
	}

	events := make([]GCEvent, 0, n)
	for i := uint32(0); i < n; i++ {
		cycle := lastNumGC + i + 1
		ev := GCEvent{Kind: GCKindAutomatic}
		if i >= n-forced {
			ev.Kind = GCKindForced
		}
		if ms.NumGC-cycle < uint32(len(ms.PauseNs)) {
			ev.Duration = time.Duration(ms.PauseNs[(cycle+255)%256])
		}
		events = append(events, ev)
	}
	return events
}

func (s *GoRuntimeSource) probe(ctx context.Context) {
	timer := time.NewTimer(s.resolution)
	defer timer.Stop()

	for {
		expected := time.Now().Add(s.resolution)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			lag := time.Since(expected)
			if lag < 0 {
				lag = 0
			}
			s.record(uint64(lag.Microseconds()))
			timer.Reset(s.resolution)
		}
	}
}

func (s *GoRuntimeSource) record(us uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop.Count == 0 || us < s.loop.Min {
		s.loop.Min = us
	}
	if us > s.loop.Max {
		s.loop.Max = us
	}
	s.loop.Total += us
	s.loop.SumOfSquares += float64(us) * float64(us)
	s.loop.Count++
}
