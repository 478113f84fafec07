package collector

import (
	"context"

	"github.com/Guliveer/vitalis/vmstats/models"
	"github.com/Guliveer/vitalis/vmstats/source"
)

// EventLoopCollector forwards the source's scheduler latency snapshot as is.
type EventLoopCollector struct {
	source source.RawSource
}

// NewEventLoopCollector creates a new scheduler latency collector.
func NewEventLoopCollector(src source.RawSource) *EventLoopCollector {
	return &EventLoopCollector{source: src}
}

// Name returns the collector identifier.
func (c *EventLoopCollector) Name() string { return FamilyEventLoop }

// Type returns the envelope type.
func (c *EventLoopCollector) Type() models.SampleType { return models.TypeEventLoop }

// Collect returns the latency accumulated since the previous tick.
func (c *EventLoopCollector) Collect(context.Context) (interface{}, error) {
	return c.source.LoopMetrics(), nil
}

// IsAvailable returns true.
func (c *EventLoopCollector) IsAvailable() bool { return true }
