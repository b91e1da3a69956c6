package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/campuserp/internal/jobs"
	"github.com/geocoder89/campuserp/internal/observability"
	"github.com/geocoder89/campuserp/internal/queue"
)

// ProcessOne claims one due job and runs it. It reports whether a job was claimed.
// Delivery failures are handled here (retry or dead-letter) and do not surface as errors.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.queue.Dequeue(claimCtx)
	cancel()

	if err != nil {
		if errors.Is(err, queue.ErrEmpty) {
			return false, nil
		}
		return false, err
	}

	w.metrics.Claimed(string(j.Type))
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()
	j.Attempts++
	j.Status = jobs.JobProcessing

	err = w.execute(ctx, j)
	elapsed := time.Since(start)

	if err == nil {
		w.metrics.Finished(string(j.Type), observability.JobOutcomeDone, elapsed)
		w.prom.ObserveJob(string(j.Type), "done", elapsed)
		w.log.InfoContext(ctx, "job done", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts)
		return true, nil
	}

	return true, w.handleFailure(ctx, j, err, elapsed)
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	payload, err := jobs.DecodePayload(j)
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case jobs.SendEmailPayload:
		return w.notifier.SendEmail(ctx, p.To, p.Subject, p.Body)
	case jobs.NotifyAdminsPayload:
		return w.notifier.NotifyAdmins(ctx, p.Event)
	default:
		return fmt.Errorf("%w: %T", jobs.ErrPayloadTypeMismatch, payload)
	}
}

// queueWriteTimeout bounds the requeue or dead-letter write after an attempt.
const queueWriteTimeout = 5 * time.Second

func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, cause error, elapsed time.Duration) error {
	// the claim already removed the job, so the write back must survive shutdown
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), queueWriteTimeout)
	defer cancel()

	if ctx.Err() != nil {
		j.Release()
		w.prom.ObserveJob(string(j.Type), "interrupted", elapsed)
		w.log.WarnContext(wctx, "job interrupted, released", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "err", cause)
		return w.queue.Enqueue(wctx, j)
	}

	// payloads that cannot decode will never succeed
	if errors.Is(cause, jobs.ErrInvalidJobPayload) || errors.Is(cause, jobs.ErrInvalidJobType) {
		j.Attempts = j.MaxAttempts
	}

	j.Fail(cause, time.Now().UTC().Add(w.backoff(j.Attempts-1)))

	if j.Status == jobs.JobDead {
		w.metrics.Finished(string(j.Type), observability.JobOutcomeDead, elapsed)
		w.prom.ObserveJob(string(j.Type), "failed", elapsed)
		w.log.ErrorContext(ctx, "job dead-lettered", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "err", cause)
		return w.queue.DeadLetter(wctx, j)
	}

	w.metrics.Finished(string(j.Type), observability.JobOutcomeRetried, elapsed)
	w.prom.ObserveJob(string(j.Type), "retry", elapsed)
	w.log.WarnContext(ctx, "job failed, retrying", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "run_at", j.RunAt, "err", cause)
	return w.queue.Enqueue(wctx, j)
}
