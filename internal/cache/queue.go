package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Enqueue JSON-encodes job and pushes it onto the left side of a Redis list.
func Enqueue[T any](ctx context.Context, r *Redis, queue string, jobs ...T) error {
	if len(jobs) == 0 {
		return nil
	}
	values := make([]any, len(jobs))
	for i, job := range jobs {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("queue marshal: %w", err)
		}
		values[i] = data
	}
	return r.client.LPush(ctx, queue, values...).Err()
}

// Dequeue blocks until a job is available on the right side of the list
// or the timeout expires. When the timeout elapses without a job,
// (nil, nil) is returned so the caller can loop and check for shutdown.
func Dequeue[T any](ctx context.Context, r *Redis, queue string, timeout time.Duration) (*T, error) {
	result, err := r.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		// Context cancelled (shutdown) is not an error.
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) < 2 {
		return nil, nil
	}
	var job T
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	return &job, nil
}
