package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrStopped = errors.New("worker pool stopped")
	ErrFull    = errors.New("worker pool queue full")
)

type ProcessFunc[J any] func(ctx context.Context, job J) error

// Pool runs jobs of type J on a fixed number of goroutines fed by a bounded
// queue. Processing errors are logged and counted, never returned.
type Pool[J any] struct {
	name       string
	numWorkers int
	jobs       chan J
	processor  ProcessFunc[J]
	wg         sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	statsMu sync.Mutex
	stats   Stats
}

type Stats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

func NewPool[J any](name string, numWorkers, bufferSize int, processor ProcessFunc[J]) *Pool[J] {
	return &Pool[J]{
		name:       name,
		numWorkers: numWorkers,
		jobs:       make(chan J, bufferSize),
		processor:  processor,
	}
}

func (p *Pool[J]) Start(ctx context.Context) {
	for i := 1; i <= p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool[J]) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			err := p.processor(ctx, job)
			p.statsMu.Lock()
			if err != nil {
				p.stats.Failed++
			} else {
				p.stats.Processed++
			}
			p.statsMu.Unlock()
			if err != nil {
				slog.Error("job failed", "pool", p.name, "worker", id, "error", err)
			}
		}
	}
}

// TrySubmit queues job only if the queue has room. It never blocks.
func (p *Pool[J]) TrySubmit(job J) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		p.statsMu.Lock()
		p.stats.Dropped++
		p.statsMu.Unlock()
		return ErrFull
	}
}

func (p *Pool[J]) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

// Stop rejects new jobs, lets the workers drain the queue and waits for them.
func (p *Pool[J]) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}
