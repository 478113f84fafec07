// Thread and file descriptor collectors: count the entries of
// /proc/<pid>/task and /proc/<pid>/fd. Linux only.
package collector

import (
	"context"
	"fmt"

	"github.com/Guliveer/vitalis/vmstats/models"
	"github.com/Guliveer/vitalis/vmstats/platform"
)

// ProcDirCollector reports the number of entries in one procfs directory of
// the process.
type ProcDirCollector struct {
	name     string
	dir      string
	typ      models.SampleType
	platform platform.Platform
	pid      int
}

// NewThreadCountCollector counts the threads of process pid.
func NewThreadCountCollector(p platform.Platform, pid int) *ProcDirCollector {
	return &ProcDirCollector{name: FamilyThread, dir: "task", typ: models.TypeThreadCount, platform: p, pid: pid}
}

// NewFDCountCollector counts the open file descriptors of process pid.
func NewFDCountCollector(p platform.Platform, pid int) *ProcDirCollector {
	return &ProcDirCollector{name: FamilyFD, dir: "fd", typ: models.TypeFDCount, platform: p, pid: pid}
}

// Name returns the collector identifier.
func (c *ProcDirCollector) Name() string { return c.name }

// Type returns the envelope type.
func (c *ProcDirCollector) Type() models.SampleType { return c.typ }

// Collect lists the directory and returns a CountSample.
func (c *ProcDirCollector) Collect(context.Context) (interface{}, error) {
	path := platform.ProcPath(c.pid, c.dir)
	entries, err := c.platform.ListDir(path)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}
	return models.CountSample{Count: len(entries)}, nil
}

// IsAvailable returns true only on Linux.
func (c *ProcDirCollector) IsAvailable() bool { return c.platform.Name() == platform.Linux }
