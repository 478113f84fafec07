package collector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Guliveer/vitalis/vmstats/models"
	"github.com/Guliveer/vitalis/vmstats/source"
)

// fakeSource is a RawSource whose GC events are fired by the test.
type fakeSource struct {
	mu         sync.Mutex
	startErr   error
	started    bool
	handler    func(source.GCEvent)
	loopReads  atomic.Int32
	subscribes atomic.Int32
}

func (s *fakeSource) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeSource) SubscribeGC(handler func(source.GCEvent)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribes.Add(1)
	if !s.started {
		return source.ErrNotStarted
	}
	s.handler = handler
	return nil
}

func (s *fakeSource) LoopMetrics() source.LoopMetrics {
	n := s.loopReads.Add(1)
	return source.LoopMetrics{Usage: source.LoopUsage{Total: uint64(n) * 100, Count: uint64(n)}}
}

func (s *fakeSource) fire(ev source.GCEvent) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	h(ev)
}

// fakeRuntime returns fixed figures and counts every call.
type fakeRuntime struct {
	mu       sync.Mutex
	calls    int
	memory   source.MemoryUsage
	memErr   error
	heap     source.HeapStatistics
	spaces   source.HeapSpaces
	spaceErr error
	cpu      []source.CPUUsage
	uptime   time.Duration
	cores    int
	pid      int
}

func newFakeRuntime() *fakeRuntime {
	spaces, _ := source.NewHeapSpaces([]models.HeapSpace{
		{Name: source.SpaceObjects, Bytes: 100},
		{Name: source.SpaceUnused, Bytes: 200},
		{Name: source.SpaceFree, Bytes: 300},
		{Name: source.SpaceReleased, Bytes: 400},
		{Name: source.SpaceStacks, Bytes: 500},
	})
	return &fakeRuntime{
		memory: source.MemoryUsage{RSS: 50 << 20, HeapTotal: 20 << 20, HeapUsed: 12 << 20, External: 3 << 20},
		heap:   source.HeapStatistics{HeapSizeLimit: 1 << 30, TotalPhysicalSize: 30 << 20},
		spaces: spaces,
		uptime: 10 * time.Second,
		cores:  4,
		pid:    4242,
	}
}

func (r *fakeRuntime) touch() {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
}

func (r *fakeRuntime) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *fakeRuntime) HeapStatistics() source.HeapStatistics {
	r.touch()
	return r.heap
}

func (r *fakeRuntime) HeapSpaces() (source.HeapSpaces, error) {
	r.touch()
	return r.spaces, r.spaceErr
}

func (r *fakeRuntime) MemoryUsage(context.Context) (source.MemoryUsage, error) {
	r.touch()
	return r.memory, r.memErr
}

func (r *fakeRuntime) CPUUsage(context.Context) (source.CPUUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.cpu) == 0 {
		return source.CPUUsage{}, errors.New("no cpu readings left")
	}
	u := r.cpu[0]
	if len(r.cpu) > 1 {
		r.cpu = r.cpu[1:]
	}
	return u, nil
}

func (r *fakeRuntime) Uptime(context.Context) (time.Duration, error) {
	r.touch()
	return r.uptime, nil
}

// NumCPU and PID describe the identity and are not counted as sampling.
func (r *fakeRuntime) NumCPU(context.Context) int { return r.cores }
func (r *fakeRuntime) PID() int                   { return r.pid }

// fakePlatform lists directories from a map and counts calls.
type fakePlatform struct {
	name  string
	dirs  map[string][]string
	err   error
	calls atomic.Int32
}

func (p *fakePlatform) Name() string { return p.name }

func (p *fakePlatform) ListDir(path string) ([]string, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	entries, ok := p.dirs[path]
	if !ok {
		return nil, errors.New("no such directory")
	}
	return entries, nil
}

// recorder is a sink that keeps every envelope.
type recorder struct {
	mu        sync.Mutex
	envelopes []models.Envelope
}

func (r *recorder) Report(typ models.SampleType, pid int, metrics interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, models.Envelope{Type: typ, PID: pid, Metrics: metrics})
}

func (r *recorder) All() []models.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Envelope(nil), r.envelopes...)
}

func (r *recorder) OfType(typ models.SampleType) []models.Envelope {
	var out []models.Envelope
	for _, env := range r.All() {
		if env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}
