package source

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Guliveer/vitalis/vmstats/models"
)

// Runtime answers point-in-time questions about the current process.
type Runtime interface {
	HeapStatistics() HeapStatistics
	HeapSpaces() (HeapSpaces, error)
	MemoryUsage(ctx context.Context) (MemoryUsage, error)
	// CPUUsage returns the cumulative CPU time consumed by the process.
	CPUUsage(ctx context.Context) (CPUUsage, error)
	Uptime(ctx context.Context) (time.Duration, error)
	NumCPU(ctx context.Context) int
	PID() int
}

// HeapStatistics summarizes the Go heap, in bytes.
type HeapStatistics struct {
	TotalHeapSize     int64
	UsedHeapSize      int64
	HeapSizeLimit     int64
	TotalPhysicalSize int64
	External          int64
}

// MemoryUsage is the process-level memory picture, in bytes.
type MemoryUsage struct {
	RSS       int64
	HeapTotal int64
	HeapUsed  int64
	External  int64
}

// CPUUsage is CPU time spent in user and kernel mode.
type CPUUsage struct {
	User   time.Duration
	System time.Duration
}

// Since returns the usage accumulated after prev.
func (u CPUUsage) Since(prev CPUUsage) CPUUsage {
	return CPUUsage{User: u.User - prev.User, System: u.System - prev.System}
}

// Heap space names in the order HeapSpaces holds them.
const (
	SpaceObjects  = "objects"
	SpaceUnused   = "unused"
	SpaceFree     = "free"
	SpaceReleased = "released"
	SpaceStacks   = "stacks"
)

var heapSpaceNames = [5]string{SpaceObjects, SpaceUnused, SpaceFree, SpaceReleased, SpaceStacks}

var heapSpaceMetrics = [5]string{
	"/memory/classes/heap/objects:bytes",
	"/memory/classes/heap/unused:bytes",
	"/memory/classes/heap/free:bytes",
	"/memory/classes/heap/released:bytes",
	"/memory/classes/heap/stacks:bytes",
}

// HeapSpaces is the fixed, ordered breakdown of the Go heap.
type HeapSpaces [5]models.HeapSpace

// NewHeapSpaces validates that spaces holds exactly the five known spaces in
// order and returns them as HeapSpaces.
func NewHeapSpaces(spaces []models.HeapSpace) (HeapSpaces, error) {
	var hs HeapSpaces
	if len(spaces) != len(hs) {
		return hs, fmt.Errorf("expected %d heap spaces, got %d", len(hs), len(spaces))
	}
	for i, sp := range spaces {
		if sp.Name != heapSpaceNames[i] {
			return hs, fmt.Errorf("heap space %d: expected %q, got %q", i, heapSpaceNames[i], sp.Name)
		}
		hs[i] = sp
	}
	return hs, nil
}

func (h HeapSpaces) Objects() models.HeapSpace  { return h[0] }
func (h HeapSpaces) Unused() models.HeapSpace   { return h[1] }
func (h HeapSpaces) Free() models.HeapSpace     { return h[2] }
func (h HeapSpaces) Released() models.HeapSpace { return h[3] }
func (h HeapSpaces) Stacks() models.HeapSpace   { return h[4] }

// ProcessRuntime is the Runtime for the current process. Heap figures come
// from the Go runtime, process figures from gopsutil.
type ProcessRuntime struct {
	pid  int
	proc *process.Process
}

// NewProcessRuntime creates a Runtime for the calling process.
func NewProcessRuntime() (*ProcessRuntime, error) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("opening process %d: %w", pid, err)
	}
	return &ProcessRuntime{pid: pid, proc: proc}, nil
}

// PID returns the process id.
func (r *ProcessRuntime) PID() int { return r.pid }

// NumCPU returns the logical core count, falling back to runtime.NumCPU.
func (r *ProcessRuntime) NumCPU(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// HeapStatistics reads runtime.MemStats.
func (r *ProcessRuntime) HeapStatistics() HeapStatistics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return heapStatistics(&ms, debug.SetMemoryLimit(-1))
}

func heapStatistics(ms *runtime.MemStats, limit int64) HeapStatistics {
	return HeapStatistics{
		TotalHeapSize:     int64(ms.HeapSys - ms.HeapReleased),
		UsedHeapSize:      int64(ms.HeapAlloc),
		HeapSizeLimit:     limit,
		TotalPhysicalSize: int64(ms.Sys - ms.HeapReleased),
		External:          int64(ms.Sys - ms.HeapSys),
	}
}

// HeapSpaces reads the heap memory classes from runtime/metrics.
func (r *ProcessRuntime) HeapSpaces() (HeapSpaces, error) {
	samples := make([]metrics.Sample, len(heapSpaceMetrics))
	for i, name := range heapSpaceMetrics {
		samples[i].Name = name
	}
	metrics.Read(samples)

	spaces := make([]models.HeapSpace, len(samples))
	for i, s := range samples {
		if s.Value.Kind() != metrics.KindUint64 {
			return HeapSpaces{}, fmt.Errorf("runtime metric %s is not supported", s.Name)
		}
		spaces[i] = models.HeapSpace{Name: heapSpaceNames[i], Bytes: s.Value.Uint64()}
	}
	return NewHeapSpaces(spaces)
}

// MemoryUsage combines the resident set size with the heap statistics.
func (r *ProcessRuntime) MemoryUsage(ctx context.Context) (MemoryUsage, error) {
	info, err := r.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return MemoryUsage{}, fmt.Errorf("reading memory info: %w", err)
	}
	hs := r.HeapStatistics()
	return MemoryUsage{
		RSS:       int64(info.RSS),
		HeapTotal: hs.TotalHeapSize,
		HeapUsed:  hs.UsedHeapSize,
		External:  hs.External,
	}, nil
}

// CPUUsage returns the cumulative user and system time of the process.
func (r *ProcessRuntime) CPUUsage(ctx context.Context) (CPUUsage, error) {
	return r.cpuUsage(ctx)
}

// Uptime returns the time elapsed since the process was created.
func (r *ProcessRuntime) Uptime(ctx context.Context) (time.Duration, error) {
	created, err := r.proc.CreateTimeWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading process create time: %w", err)
	}
	uptime := time.Since(time.UnixMilli(created))
	if uptime < 0 {
		uptime = 0
	}
	return uptime, nil
}
