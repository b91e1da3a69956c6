package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/campuserp/internal/jobs"
	"github.com/geocoder89/campuserp/internal/queue"
)

type Queue struct {
	mu   sync.Mutex
	now  func() time.Time
	jobs []jobs.Job
	dead []jobs.Job
}

func New() *Queue {
	return &Queue{now: time.Now}
}

// Enqueue and DeadLetter refuse a done context, as the redis queue does.
func (q *Queue) Enqueue(ctx context.Context, j jobs.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.jobs = append(q.jobs, j)
	sort.SliceStable(q.jobs, func(a, b int) bool {
		return q.jobs[a].RunAt.Before(q.jobs[b].RunAt)
	})
	return nil
}

func (q *Queue) Dequeue(ctx context.Context) (jobs.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 || q.jobs[0].RunAt.After(q.now()) {
		return jobs.Job{}, queue.ErrEmpty
	}

	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, nil
}

func (q *Queue) DeadLetter(ctx context.Context, j jobs.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.dead = append(q.dead, j)
	return nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.jobs), nil
}

// Dead returns a copy of dead-lettered jobs.
func (q *Queue) Dead() []jobs.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]jobs.Job, len(q.dead))
	copy(out, q.dead)
	return out
}
