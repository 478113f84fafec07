//go:build linux

package platform

import "os"

// LinuxPlatform reads process information from procfs.
type LinuxPlatform struct{}

// New creates the platform for the running OS.
func New() Platform {
	return &LinuxPlatform{}
}

// Name returns the platform identifier.
func (p *LinuxPlatform) Name() string { return Linux }

// ListDir returns the entry names under path without stat-ing them.
func (p *LinuxPlatform) ListDir(path string) ([]string, error) {
	dir, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer dir.Close()
	return dir.Readdirnames(-1)
}
