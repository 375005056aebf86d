package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusStaysHealthyUntilRetriesExhausted(t *testing.T) {
	cfg := Config{Retries: 3}
	s := NewStatus()

	s.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
	assert.True(t, s.Healthy, "one failure should not flip healthy with Retries=3")

	s.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
	assert.True(t, s.Healthy)

	s.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
	assert.False(t, s.Healthy, "third consecutive failure should flip to unhealthy")
}

func TestStatusRecoversOnSuccess(t *testing.T) {
	cfg := Config{Retries: 1}
	s := NewStatus()

	s.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
	assert.False(t, s.Healthy)

	s.Update(Result{Healthy: true, CheckedAt: time.Now()}, cfg)
	assert.True(t, s.Healthy)
	assert.Equal(t, 0, s.ConsecutiveFailures)
}

func TestInStartPeriod(t *testing.T) {
	s := NewStatus()
	cfg := Config{StartPeriod: time.Hour}
	assert.True(t, s.InStartPeriod(cfg))

	assert.False(t, s.InStartPeriod(Config{StartPeriod: 0}))
}
