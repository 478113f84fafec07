//go:build !windows

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestStubRunsInForeground(t *testing.T) {
	assert.False(t, IsWindowsService())

	called := false
	s := New(zap.NewNop(), func(ctx context.Context) error {
		called = true
		assert.NoError(t, ctx.Err())
		return errors.New("stopped")
	})

	assert.EqualError(t, s.Run(), "stopped")
	assert.True(t, called)
}
