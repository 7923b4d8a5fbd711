// Package async runs independent jobs on a bounded set of workers and hands results
// back in submission order.
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Pool struct {
	logger  *slog.Logger
	workers int
	timeout time.Duration
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPool(logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		logger:  logger,
		workers: 1,
		timeout: 3 * time.Minute,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pool) Workers() int { return p.workers }

// Result is the outcome of the job at Index.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Run applies fn to every item with at most p.Workers() jobs in flight, each under the
// pool's timeout. Results come back in item order. Items not started before ctx is done
// report ctx.Err().
func Run[In, Out any](ctx context.Context, p *Pool, items []In, fn func(ctx context.Context, item In) (Out, error)) []Result[Out] {
	results := make([]Result[Out], len(items))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := min(p.workers, len(items))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				jobCtx, cancel := context.WithTimeout(ctx, p.timeout)
				start := time.Now()
				v, err := fn(jobCtx, items[i])
				cancel()
				results[i] = Result[Out]{Index: i, Value: v, Err: err}
				if err != nil {
					p.logger.Warn("async.job.failed", "worker_id", workerID, "index", i, "error", err)
				} else {
					p.logger.Debug("async.job.ok", "worker_id", workerID, "index", i,
						"elapsed_ms", time.Since(start).Milliseconds())
				}
			}
		}(w + 1)
	}

	next := 0
feed:
	for ; next < len(items); next++ {
		select {
		case jobs <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(items); i++ {
		results[i] = Result[Out]{Index: i, Err: ctx.Err()}
	}
	return results
}
