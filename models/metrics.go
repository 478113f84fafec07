// Package models defines the sample and envelope structures handed to a sink.
// Every collector's output is wrapped in an Envelope so that sinks see one shape
// regardless of metric family.
package models

// SampleType identifies the metric family carried by an Envelope.
type SampleType string

const (
	TypeGC          SampleType = "gc"
	TypeMemory      SampleType = "memory"
	TypeCPU         SampleType = "cpu"
	TypeEventLoop   SampleType = "eventloop"
	TypeThreadCount SampleType = "thread_count"
	TypeFDCount     SampleType = "fd_count"
	TypeSampleError SampleType = "sample_error"
)

// ReportFunc is the sink contract. It receives every envelope produced by a
// collector. Implementations must be fast or hand off asynchronously: the
// caller does not wait, retry, or recover panics.
type ReportFunc func(typ SampleType, pid int, metrics interface{})

// Envelope is the uniform unit delivered to a sink.
type Envelope struct {
	Type    SampleType  `json:"type"`
	PID     int         `json:"pid"`
	Metrics interface{} `json:"metrics"`
}

// ProcessIdentity is captured once at startup and never changes.
type ProcessIdentity struct {
	PID      int `json:"pid"`
	CPUCores int `json:"cpu_cores"`
}

// HeapSpace is the size of one named region of the Go heap.
type HeapSpace struct {
	Name  string `json:"name"`
	Bytes uint64 `json:"bytes"`
}

// GCSample is emitted once per completed garbage-collection cycle.
// Durations are in nanoseconds.
type GCSample struct {
	Type              string    `json:"type"`
	Duration          int64     `json:"duration"`
	ObjectsSpace      HeapSpace `json:"objectsSpace"`
	UnusedSpace       HeapSpace `json:"unusedSpace"`
	ReleasedSpace     HeapSpace `json:"releasedSpace"`
	StacksSpace       HeapSpace `json:"stacksSpace"`
	TotalGCCount      uint64    `json:"totalGCCount"`
	TotalGCPausedTime int64     `json:"totalGCPausedTime"`
}

// MemorySample is a point-in-time view of process memory, in bytes.
// Fields are signed so that NonHeapUsed = RSS - HeapTotal is exact even when
// the heap reservation exceeds what is resident.
type MemorySample struct {
	RSS               int64 `json:"rss"`
	External          int64 `json:"external"`
	HeapUsed          int64 `json:"heapUsed"`
	HeapTotal         int64 `json:"heapTotal"`
	NonHeapUsed       int64 `json:"nonHeapUsed"`
	HeapSizeLimit     int64 `json:"heapSizeLimit"`
	TotalPhysicalSize int64 `json:"totalPhysicalSize"`
}

// CPUTimeSample holds CPU time (milliseconds) spent since the previous sample
// and the matching share of all cores over the same wall-clock window.
type CPUTimeSample struct {
	User            float64 `json:"user"`
	Sys             float64 `json:"sys"`
	UserUtilization float64 `json:"user_utilization"`
	SysUtilization  float64 `json:"sys_utilization"`
}

// CountSample is used by the thread and file descriptor collectors.
type CountSample struct {
	Count int `json:"count"`
}

// SampleError reports a failed read. Type is the collector family name.
type SampleError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Batch is the payload the HTTP sink posts to an ingestion endpoint.
type Batch struct {
	Samples []Envelope `json:"samples"`
}
