// Command vmstats samples the telemetry of its own Go process (garbage
// collection, memory, CPU time, scheduler latency, threads and file
// descriptors) and hands every sample to a console, log or HTTP sink.
package main

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	Execute()
}
