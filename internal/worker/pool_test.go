package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsEverythingBeforeStop(t *testing.T) {
	p := NewPool(4, 128)
	var n atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Submit(func() { n.Add(1) }))
	}
	p.Stop()
	assert.Equal(t, int64(100), n.Load())
}

func TestPoolSurvivesPanickingJob(t *testing.T) {
	p := NewPool(1, 4)
	var ran atomic.Bool
	require.NoError(t, p.Submit(func() { panic("boom") }))
	require.NoError(t, p.Submit(func() { ran.Store(true) }))
	p.Stop()
	assert.True(t, ran.Load())
}

func TestSubmitAfterStop(t *testing.T) {
	p := NewPool(1, 1)
	p.Stop()
	p.Stop()
	assert.ErrorIs(t, p.Submit(func() {}), ErrStopped)
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	p := NewPool(1, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		close(started)
		<-block
	}))
	<-started
	require.NoError(t, p.Submit(func() {}))

	done := make(chan error, 1)
	go func() { done <- p.Submit(func() {}) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	close(block)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
