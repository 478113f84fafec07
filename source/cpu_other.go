//go:build !unix

package source

import (
	"context"
	"fmt"
	"time"
)

func (r *ProcessRuntime) cpuUsage(ctx context.Context) (CPUUsage, error) {
	times, err := r.proc.TimesWithContext(ctx)
	if err != nil {
		return CPUUsage{}, fmt.Errorf("reading process cpu times: %w", err)
	}
	return CPUUsage{
		User:   time.Duration(times.User * float64(time.Second)),
		System: time.Duration(times.System * float64(time.Second)),
	}, nil
}
