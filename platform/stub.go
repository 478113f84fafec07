//go:build !linux

package platform

import "runtime"

// StubPlatform is used on systems without procfs.
type StubPlatform struct{}

// New creates the platform for the running OS.
func New() Platform {
	return &StubPlatform{}
}

// Name returns runtime.GOOS.
func (p *StubPlatform) Name() string { return runtime.GOOS }

// ListDir always fails with ErrUnsupported.
func (p *StubPlatform) ListDir(string) ([]string, error) {
	return nil, ErrUnsupported
}
