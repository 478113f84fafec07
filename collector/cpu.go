// Process CPU time collector: reports CPU time spent since the previous
// sample and the share of all cores it represents.
package collector

import (
	"context"
	"time"

	"github.com/Guliveer/vitalis/vmstats/models"
	"github.com/Guliveer/vitalis/vmstats/source"
)

// CPUTimeCollector owns the previous usage reading and sample time.
//
// On the first tick there is no previous sample, so the window starts at
// process creation: the first figures cover the whole process lifetime,
// including startup cost.
type CPUTimeCollector struct {
	runtime source.Runtime
	cores   int
	now     func() time.Time

	lastUsage  source.CPUUsage
	lastSample time.Time
}

// NewCPUTimeCollector creates a CPU time collector for a machine with the
// given number of cores.
func NewCPUTimeCollector(rt source.Runtime, cores int) *CPUTimeCollector {
	return &CPUTimeCollector{runtime: rt, cores: cores, now: time.Now}
}

// Name returns the collector identifier.
func (c *CPUTimeCollector) Name() string { return FamilyCPUTime }

// Type returns the envelope type.
func (c *CPUTimeCollector) Type() models.SampleType { return models.TypeCPU }

// Collect gathers a CPUTimeSample.
func (c *CPUTimeCollector) Collect(ctx context.Context) (interface{}, error) {
	if c.lastSample.IsZero() {
		uptime, err := c.runtime.Uptime(ctx)
		if err != nil {
			return nil, err
		}
		c.lastSample = c.now().Add(-uptime)
	}

	usage, err := c.runtime.CPUUsage(ctx)
	if err != nil {
		return nil, err
	}
	now := c.now()

	sample := cpuTimeSample(usage.Since(c.lastUsage), now.Sub(c.lastSample), c.cores)
	c.lastUsage, c.lastSample = usage, now
	return sample, nil
}

// IsAvailable returns true. Process CPU time is available on all platforms.
func (c *CPUTimeCollector) IsAvailable() bool { return true }

func cpuTimeSample(delta source.CPUUsage, elapsed time.Duration, cores int) models.CPUTimeSample {
	user := millis(delta.User)
	sys := millis(delta.System)
	capacity := float64(cores) * millis(elapsed)

	return models.CPUTimeSample{
		User:            user,
		Sys:             sys,
		UserUtilization: utilization(user, capacity),
		SysUtilization:  utilization(sys, capacity),
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// utilization is clamped to [0, 1]; clock and accounting granularity can
// otherwise push it slightly out of range.
func utilization(used, capacity float64) float64 {
	if capacity <= 0 || used <= 0 {
		return 0
	}
	if u := used / capacity; u < 1 {
		return u
	}
	return 1
}
