package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestTimerObserveDuration(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_timer_observe_duration_seconds"})

	timer := NewTimer()
	time.Sleep(time.Millisecond)
	timer.ObserveDuration(h)

	assert.Greater(t, timer.Duration(), time.Duration(0))
}

func TestTimerObserveDurationVec(t *testing.T) {
	h := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "test_timer_observe_duration_vec_seconds"},
		[]string{"command"},
	)

	timer := NewTimer()
	timer.ObserveDurationVec(h, "drop")
}
