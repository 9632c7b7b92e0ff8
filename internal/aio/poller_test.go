package aio

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"
)

func TestPollerReadsUntilStopped(t *testing.T) {
	var calls atomic.Int32
	read := func(ctx context.Context) (map[string]float64, error) {
		calls.Add(1)
		return nil, nil
	}

	p := NewPoller("AIO", read, 5*time.Millisecond, zap.NewNop())
	assert.NilError(t, p.Start())
	assert.NilError(t, p.Start())
	assert.Assert(t, p.IsRunning())

	poll.WaitOn(t, func(t poll.LogT) poll.Result {
		if calls.Load() >= 3 {
			return poll.Success()
		}
		return poll.Continue("%d reads so far", calls.Load())
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(5*time.Millisecond))

	p.Stop()
	assert.Assert(t, !p.IsRunning())

	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls.Load(), n)
}

func TestPollerRestart(t *testing.T) {
	var calls atomic.Int32
	read := func(ctx context.Context) (map[string]float64, error) {
		calls.Add(1)
		return nil, nil
	}

	p := NewPoller("AIO", read, 5*time.Millisecond, zap.NewNop())
	assert.NilError(t, p.Start())
	p.Stop()
	p.Stop()
	assert.Assert(t, !p.IsRunning())

	n := calls.Load()
	assert.NilError(t, p.Start())
	defer p.Stop()
	assert.Assert(t, p.IsRunning())

	poll.WaitOn(t, func(t poll.LogT) poll.Result {
		if calls.Load() > n {
			return poll.Success()
		}
		return poll.Continue("no read after restart")
	}, poll.WithTimeout(2*time.Second), poll.WithDelay(5*time.Millisecond))
}

func TestPollerConcurrentStop(t *testing.T) {
	read := func(ctx context.Context) (map[string]float64, error) { return nil, nil }

	p := NewPoller("AIO", read, 5*time.Millisecond, zap.NewNop())
	assert.NilError(t, p.Start())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Stop()
		}()
	}
	wg.Wait()
	assert.Assert(t, !p.IsRunning())
}
