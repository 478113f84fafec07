//go:build !windows

// Package service is a pass-through outside Windows: the collector always
// runs as a foreground process there.
package service

import (
	"context"

	"go.uber.org/zap"
)

// Name is the service name used on Windows.
const Name = "vmstats"

// Service runs its function directly.
type Service struct {
	logger *zap.Logger
	runFn  func(ctx context.Context) error
}

// New wraps runFn.
func New(logger *zap.Logger, runFn func(ctx context.Context) error) *Service {
	return &Service{logger: logger, runFn: runFn}
}

// IsWindowsService always returns false on non-Windows platforms.
func IsWindowsService() bool {
	return false
}

// Run calls the wrapped function with a background context.
func (s *Service) Run() error {
	return s.runFn(context.Background())
}
