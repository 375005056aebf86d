package supervisor

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cogbot/cogbot/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Init(log.Config{Level: log.ErrorLevel})
}

func TestStatusTableReportsRunning(t *testing.T) {
	s := New()
	defer s.Stop()

	s.Add("heartbeat", "test task", func(stopCh <-chan struct{}) error {
		<-stopCh
		return nil
	})

	rows := s.StatusTable()
	require.Len(t, rows, 1)
	assert.Equal(t, "heartbeat", rows[0].Name)
	assert.Equal(t, StateRunning, rows[0].State)
}

func TestCrashedTaskRestarts(t *testing.T) {
	s := New()
	defer s.Stop()

	var runs int32
	s.Add("flaky", "crashes once", func(stopCh <-chan struct{}) error {
		n := atomic.AddInt32(&runs, 1)
		if n == 1 {
			return errors.New("boom")
		}
		<-stopCh
		return nil
	})

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) >= 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestRestartReplacesRun(t *testing.T) {
	s := New()
	defer s.Stop()

	var started int32
	s.Add("task", "", func(stopCh <-chan struct{}) error {
		atomic.AddInt32(&started, 1)
		<-stopCh
		return nil
	})
	require.NoError(t, s.Restart("task"))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&started) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestRestartUnknownTaskErrors(t *testing.T) {
	s := New()
	defer s.Stop()
	assert.Error(t, s.Restart("nonexistent"))
}
