package queue

import (
	"context"
	"errors"

	"github.com/geocoder89/campuserp/internal/jobs"
)

// ErrEmpty means nothing is due yet.
var ErrEmpty = errors.New("queue: no job due")

// Queue holds notification jobs until their RunAt time.
type Queue interface {
	Enqueue(ctx context.Context, j jobs.Job) error
	// Dequeue claims the earliest due job. Claimed jobs are gone from the queue.
	Dequeue(ctx context.Context) (jobs.Job, error)
	DeadLetter(ctx context.Context, j jobs.Job) error
	Len(ctx context.Context) (int, error)
}
