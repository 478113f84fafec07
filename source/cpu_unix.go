//go:build unix

package source

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

func (r *ProcessRuntime) cpuUsage(context.Context) (CPUUsage, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return CPUUsage{}, fmt.Errorf("getrusage: %w", err)
	}
	return CPUUsage{
		User:   time.Duration(ru.Utime.Nano()),
		System: time.Duration(ru.Stime.Nano()),
	}, nil
}
