package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuncCheckerHealthy(t *testing.T) {
	checker := NewFuncChecker(func(ctx context.Context) (bool, string) {
		return true, "ok"
	})

	result := checker.Check(context.Background())
	assert.True(t, result.Healthy)
	assert.Equal(t, "ok", result.Message)
	assert.Equal(t, CheckTypeFunc, checker.Type())
}

func TestFuncCheckerUnhealthy(t *testing.T) {
	checker := NewFuncChecker(func(ctx context.Context) (bool, string) {
		return false, "document client not configured"
	})

	result := checker.Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Equal(t, "document client not configured", result.Message)
}
