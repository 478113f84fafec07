// Package platform provides an OS abstraction layer for the process
// information the Go runtime does not expose, namely the thread and file
// descriptor tables. Only Linux has a real implementation; other systems get
// a stub whose directory listing always fails.
package platform

import (
	"errors"
	"path/filepath"
	"strconv"
)

// Linux is the platform name that enables the thread and fd collectors.
const Linux = "linux"

// ErrUnsupported is returned by ListDir on platforms without a process
// information filesystem.
var ErrUnsupported = errors.New("platform: process information filesystem not available")

// Platform provides OS-specific process introspection.
type Platform interface {
	// Name returns the platform name (linux, darwin, windows, ...).
	Name() string

	// ListDir returns the entry names of a directory.
	ListDir(path string) ([]string, error)
}

// ProcPath returns /proc/<pid>/<name>.
func ProcPath(pid int, name string) string {
	return filepath.Join("/proc", strconv.Itoa(pid), name)
}
