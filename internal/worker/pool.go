package worker

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/cruiselens/payments-backend/internal/metrics"
)

type task func()

var (
	ErrStopped   = errors.New("worker pool stopped")
	ErrQueueFull = errors.New("worker queue full")
)

// Pool runs fire-and-forget side work (audit log writes) off the request
// path. Stop drains the queue before returning.
type Pool struct {
	wg     sync.WaitGroup
	jobs   chan task
	mu     sync.RWMutex
	closed bool
}

func NewPool(n, queue int) *Pool {
	if n <= 0 {
		n = 1
	}
	if queue <= 0 {
		queue = 1024
	}
	p := &Pool{jobs: make(chan task, queue)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				run(job)
			}
		}()
	}
	return p
}

func run(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker panic", "err", rec)
		}
	}()
	job()
}

// Submit queues f without waiting. A full queue drops f with ErrQueueFull,
// so Submit never blocks the caller or Stop.
func (p *Pool) Submit(f task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrStopped
	}
	select {
	case p.jobs <- f:
		metrics.WorkerQueueDepth.Inc()
		return nil
	default:
		metrics.WorkerDroppedTotal.Inc()
		return ErrQueueFull
	}
}

func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
