package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitSucceeds(t *testing.T) {
	p := New(Config{Workers: 2})
	defer p.Stop()

	v, err := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmitRetriesThenSucceeds(t *testing.T) {
	p := New(Config{Workers: 1, BaseDelay: time.Millisecond, MaxRetries: 3})
	defer p.Stop()

	var attempts int32
	v, err := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestSubmitExhaustsRetries(t *testing.T) {
	p := New(Config{Workers: 1, BaseDelay: time.Millisecond, MaxRetries: 2})
	defer p.Stop()

	_, err := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return nil, errors.New("permanent")
	})
	require.Error(t, err)
}

func TestStopDrainsWorkers(t *testing.T) {
	p := New(Config{Workers: 2})
	_, err := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)
	p.Stop()
}
