package source

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/vitalis/vmstats/models"
)

func TestGCEventsSince(t *testing.T) {
	var ms runtime.MemStats
	ms.NumGC = 3
	ms.NumForcedGC = 1
	ms.PauseNs[0] = 1000000
	ms.PauseNs[1] = 2000000
	ms.PauseNs[2] = 500000

	events := gcEventsSince(&ms, 0, 0)
	require.Len(t, events, 3)
	assert.Equal(t, GCEvent{Kind: GCKindAutomatic, Duration: 1000000}, events[0])
	assert.Equal(t, GCEvent{Kind: GCKindAutomatic, Duration: 2000000}, events[1])
	assert.Equal(t, GCEvent{Kind: GCKindForced, Duration: 500000}, events[2])

	assert.Empty(t, gcEventsSince(&ms, 3, 1))
}

func TestGCEventsSince_RingOverflow(t *testing.T) {
	var ms runtime.MemStats
	ms.NumGC = 300
	for i := range ms.PauseNs {
		ms.PauseNs[i] = 7
	}

	events := gcEventsSince(&ms, 0, 0)
	require.Len(t, events, 300)
	// Cycles 1..44 were overwritten in the 256-entry ring.
	assert.Zero(t, events[0].Duration)
	assert.Zero(t, events[43].Duration)
	assert.Equal(t, time.Duration(7), events[44].Duration)
	assert.Equal(t, time.Duration(7), events[299].Duration)
}

func TestGoRuntimeSource_SubscribeBeforeStart(t *testing.T) {
	src := NewGoRuntimeSource()
	assert.ErrorIs(t, src.SubscribeGC(func(GCEvent) {}), ErrNotStarted)
}

func TestGoRuntimeSource_StartTwice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewGoRuntimeSource()
	require.NoError(t, src.Start(ctx))
	assert.ErrorIs(t, src.Start(ctx), ErrAlreadyStarted)
}

func TestGoRuntimeSource_DeliversGCEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewGoRuntimeSource()
	require.NoError(t, src.Start(ctx))

	var mu sync.Mutex
	var events []GCEvent
	require.NoError(t, src.SubscribeGC(func(ev GCEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))
	assert.ErrorIs(t, src.SubscribeGC(func(GCEvent) {}), ErrAlreadySubscribed)

	assert.Eventually(t, func() bool {
		runtime.GC()
		mu.Lock()
		defer mu.Unlock()
		return len(events) > 0
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	var forced int
	for _, ev := range events {
		if ev.Kind == GCKindForced {
			forced++
		}
	}
	assert.Positive(t, forced)
}

func TestGoRuntimeSource_LoopMetricsResetOnRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewGoRuntimeSource(WithLoopResolution(time.Millisecond))
	require.NoError(t, src.Start(ctx))

	var first LoopMetrics
	assert.Eventually(t, func() bool {
		first = src.LoopMetrics()
		return first.Usage.Count > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, first.Usage.Min, first.Usage.Max)
	assert.GreaterOrEqual(t, first.Usage.Total, first.Usage.Max)

	cancel()
	time.Sleep(20 * time.Millisecond)
	src.LoopMetrics()
	assert.Zero(t, src.LoopMetrics().Usage.Count)
}

func TestRecord(t *testing.T) {
	src := NewGoRuntimeSource()
	for _, us := range []uint64{30, 10, 20} {
		src.record(us)
	}

	got := src.LoopMetrics().Usage
	assert.Equal(t, LoopUsage{Total: 60, Min: 10, Max: 30, SumOfSquares: 1400, Count: 3}, got)
}

func TestNewHeapSpaces(t *testing.T) {
	spaces := []models.HeapSpace{
		{Name: SpaceObjects, Bytes: 1},
		{Name: SpaceUnused, Bytes: 2},
		{Name: SpaceFree, Bytes: 3},
		{Name: SpaceReleased, Bytes: 4},
		{Name: SpaceStacks, Bytes: 5},
	}

	hs, err := NewHeapSpaces(spaces)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), hs.Objects().Bytes)
	assert.Equal(t, uint64(3), hs.Free().Bytes)
	assert.Equal(t, uint64(5), hs.Stacks().Bytes)

	_, err = NewHeapSpaces(spaces[:4])
	assert.Error(t, err)

	swapped := append([]models.HeapSpace(nil), spaces...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	_, err = NewHeapSpaces(swapped)
	assert.Error(t, err)
}

func TestCPUUsage_Since(t *testing.T) {
	prev := CPUUsage{User: 2 * time.Second, System: time.Second}
	cur := CPUUsage{User: 5 * time.Second, System: 1500 * time.Millisecond}
	assert.Equal(t, CPUUsage{User: 3 * time.Second, System: 500 * time.Millisecond}, cur.Since(prev))
}

func TestHeapStatistics(t *testing.T) {
	ms := runtime.MemStats{Sys: 1000, HeapSys: 600, HeapReleased: 100, HeapAlloc: 300}
	hs := heapStatistics(&ms, 4096)
	assert.Equal(t, HeapStatistics{
		TotalHeapSize:     500,
		UsedHeapSize:      300,
		HeapSizeLimit:     4096,
		TotalPhysicalSize: 900,
		External:          400,
	}, hs)
}

func TestProcessRuntime(t *testing.T) {
	rt, err := NewProcessRuntime()
	require.NoError(t, err)
	ctx := context.Background()

	assert.Positive(t, rt.PID())
	assert.GreaterOrEqual(t, rt.NumCPU(ctx), 1)

	spaces, err := rt.HeapSpaces()
	require.NoError(t, err)
	assert.Equal(t, SpaceReleased, spaces.Released().Name)

	usage, err := rt.MemoryUsage(ctx)
	require.NoError(t, err)
	assert.Positive(t, usage.RSS)
	assert.Positive(t, usage.HeapUsed)

	uptime, err := rt.Uptime(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, uptime, time.Duration(0))

	first, err := rt.CPUUsage(ctx)
	require.NoError(t, err)
	second, err := rt.CPUUsage(ctx)
	require.NoError(t, err)
	delta := second.Since(first)
	assert.GreaterOrEqual(t, delta.User, time.Duration(0))
	assert.GreaterOrEqual(t, delta.System, time.Duration(0))
}
