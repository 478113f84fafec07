// Package source provides the raw data sources the collectors read from:
// a Go runtime event source for garbage-collection cycles and scheduler
// latency, and a process introspection adapter for heap, memory, CPU and
// uptime figures.
package source

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotStarted is returned when a source is used before Start.
	ErrNotStarted = errors.New("source: not started")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("source: already started")

	// ErrAlreadySubscribed is returned when a GC handler is already registered.
	ErrAlreadySubscribed = errors.New("source: gc handler already registered")
)

// GC kinds reported in GCEvent.Kind.
const (
	GCKindAutomatic = "automatic"
	GCKindForced    = "forced"
)

// GCEvent describes one completed garbage-collection cycle.
type GCEvent struct {
	Kind     string
	Duration time.Duration
}

// LoopUsage summarizes scheduler latency observations in microseconds.
type LoopUsage struct {
	Total        uint64  `json:"total"`
	Min          uint64  `json:"min"`
	Max          uint64  `json:"max"`
	SumOfSquares float64 `json:"sumOfSquares"`
	Count        uint64  `json:"count"`
}

// LoopMetrics is the snapshot returned by RawSource.LoopMetrics.
type LoopMetrics struct {
	Usage LoopUsage `json:"usage"`
}

// RawSource emits garbage-collection events and accumulates scheduler
// latency. Events are delivered on a goroutine owned by the source; their
// ordering relative to timer-driven collectors is unspecified.
type RawSource interface {
	// Start initializes the source. It must be called before SubscribeGC or
	// LoopMetrics. The source stops when ctx is cancelled.
	Start(ctx context.Context) error

	// SubscribeGC registers the single handler for GC events.
	SubscribeGC(handler func(GCEvent)) error

	// LoopMetrics returns the latency accumulated since the previous call
	// and resets the accumulator.
	LoopMetrics() LoopMetrics
}
