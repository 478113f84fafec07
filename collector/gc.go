package collector

import (
	"github.com/Guliveer/vitalis/vmstats/models"
	"github.com/Guliveer/vitalis/vmstats/source"
)

// GCCollector reports every garbage-collection cycle together with running
// totals. The totals belong to this instance and are only touched by the
// source's delivery goroutine.
type GCCollector struct {
	runtime  source.Runtime
	reporter *Reporter

	totalCount  uint64
	totalPaused int64
}

// NewGCCollector creates a GC collector that is not yet subscribed.
func NewGCCollector(rt source.Runtime, reporter *Reporter) *GCCollector {
	return &GCCollector{runtime: rt, reporter: reporter}
}

// Name returns the collector identifier.
func (c *GCCollector) Name() string { return FamilyGC }

// Attach subscribes to the source's GC events.
func (c *GCCollector) Attach(src source.RawSource) error {
	return src.SubscribeGC(c.handle)
}

func (c *GCCollector) handle(ev source.GCEvent) {
	c.totalCount++
	c.totalPaused += int64(ev.Duration)

	spaces, err := c.runtime.HeapSpaces()
	if err != nil {
		c.reporter.ReportError(c.Name(), err)
		return
	}

	// The free space (third entry) is deliberately left out.
	c.reporter.Report(models.TypeGC, models.GCSample{
		Type:              ev.Kind,
		Duration:          int64(ev.Duration),
		ObjectsSpace:      spaces.Objects(),
		UnusedSpace:       spaces.Unused(),
		ReleasedSpace:     spaces.Released(),
		StacksSpace:       spaces.Stacks(),
		TotalGCCount:      c.totalCount,
		TotalGCPausedTime: c.totalPaused,
	})
}
