package collector

import (
	"context"

	"github.com/Guliveer/vitalis/vmstats/models"
	"github.com/Guliveer/vitalis/vmstats/source"
)

// MemoryCollector samples process and heap memory. It keeps no state.
type MemoryCollector struct {
	runtime source.Runtime
}

// NewMemoryCollector creates a new memory collector.
func NewMemoryCollector(rt source.Runtime) *MemoryCollector {
	return &MemoryCollector{runtime: rt}
}

// Name returns the collector identifier.
func (c *MemoryCollector) Name() string { return FamilyMemory }

// Type returns the envelope type.
func (c *MemoryCollector) Type() models.SampleType { return models.TypeMemory }

// Collect gathers a MemorySample.
func (c *MemoryCollector) Collect(ctx context.Context) (interface{}, error) {
	usage, err := c.runtime.MemoryUsage(ctx)
	if err != nil {
		return nil, err
	}
	heap := c.runtime.HeapStatistics()

	return models.MemorySample{
		RSS:               usage.RSS,
		External:          usage.External,
		HeapUsed:          usage.HeapUsed,
		HeapTotal:         usage.HeapTotal,
		NonHeapUsed:       usage.RSS - usage.HeapTotal,
		HeapSizeLimit:     heap.HeapSizeLimit,
		TotalPhysicalSize: heap.TotalPhysicalSize,
	}, nil
}

// IsAvailable returns true. Memory metrics are available on all platforms.
func (c *MemoryCollector) IsAvailable() bool { return true }
