package logo

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool runs dispatched jobs on background goroutines, at most Workers at a
// time per dispatched batch.
type Pool struct {
	fetcher *Fetcher
	workers int
	wg      sync.WaitGroup
}

// NewPool creates a Pool; workers <= 0 means 4.
func NewPool(f *Fetcher, workers int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	return &Pool{fetcher: f, workers: workers}
}

// Dispatch starts fetching jobs and returns immediately.
func (p *Pool) Dispatch(ctx context.Context, jobs []Job) {
	if len(jobs) == 0 {
		return
	}
	jobs = append([]Job(nil), jobs...)
	bg := context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		var g errgroup.Group
		g.SetLimit(p.workers)
		for _, job := range jobs {
			g.Go(func() error {
				p.fetcher.Run(bg, job)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// Wait blocks until every dispatched batch has finished. Used at shutdown.
func (p *Pool) Wait() {
	p.wg.Wait()
}
