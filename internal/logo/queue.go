package logo

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voyagen/tvlineup/internal/cache"
	"github.com/voyagen/tvlineup/internal/logging"
)

// Queue dispatches jobs onto a Redis list consumed by Work, so logo fetching
// can run in a separate process.
type Queue struct {
	r    *cache.Redis
	name string
}

// NewQueue returns a Queue pushing onto the list name.
func NewQueue(r *cache.Redis, name string) *Queue {
	return &Queue{r: r, name: name}
}

// Dispatch enqueues jobs. Enqueue failures are logged and the jobs dropped.
func (q *Queue) Dispatch(ctx context.Context, jobs []Job) {
	if len(jobs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := cache.Enqueue(ctx, q.r, q.name, jobs...); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Int("jobs", len(jobs)).Msg("logo enqueue failed")
	}
}

// Work dequeues jobs from the list name and fetches them, at most workers
// at a time, until ctx is cancelled.
func Work(ctx context.Context, r *cache.Redis, name string, f *Fetcher, workers int) {
	if workers <= 0 {
		workers = 4
	}
	log := logging.FromContext(ctx)
	log.Info().Str("queue", name).Int("workers", workers).Msg("logo worker started")

	var g errgroup.Group
	g.SetLimit(workers)
	defer func() { _ = g.Wait() }()

	bg := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("logo worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue[Job](ctx, r, name, 5*time.Second)
		if err != nil {
			log.Warn().Err(err).Msg("logo worker: dequeue error")
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}
		g.Go(func() error {
			f.Run(bg, *job)
			return nil
		})
	}
}
