// Package collector defines the periodic Collector interface and provides
// one implementation per metric family, plus the event-driven GC collector.
package collector

import (
	"context"

	"github.com/Guliveer/vitalis/vmstats/models"
)

// Family names, used for logging and as the type of a sample_error.
const (
	FamilyGC        = "gc"
	FamilyMemory    = "memory"
	FamilyCPUTime   = "cpuTime"
	FamilyEventLoop = "eventLoop"
	FamilyThread    = "thread"
	FamilyFD        = "fd"
)

// Collector is the interface that all periodic collectors implement.
// A collector owns its derived state; Collect is only ever called from the
// collector's own ticker goroutine.
type Collector interface {
	// Name returns the metric family name.
	Name() string

	// Type returns the envelope type used for successful samples.
	Type() models.SampleType

	// Collect takes one sample.
	Collect(ctx context.Context) (interface{}, error)

	// IsAvailable checks if this collector can run on the current platform.
	// Collectors that return false are never scheduled.
	IsAvailable() bool
}
