package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/campuserp/internal/notifications"
	"github.com/geocoder89/campuserp/internal/observability"
	"github.com/geocoder89/campuserp/internal/queue"
)

type Config struct {
	PollInterval time.Duration
	Concurrency  int
	WorkerID     string
}

type Worker struct {
	cfg      Config
	queue    queue.Queue
	notifier notifications.Notifier
	log      *slog.Logger
	metrics  *observability.JobMetrics
	prom     *observability.Prom
	backoff  func(attempt int) time.Duration

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, q queue.Queue, n notifications.Notifier, log *slog.Logger, metrics *observability.JobMetrics, prom *observability.Prom) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewJobMetrics()
	}

	return &Worker{
		cfg:      cfg,
		queue:    q,
		notifier: n,
		log:      log.With("worker_id", cfg.WorkerID),
		metrics:  metrics,
		prom:     prom,
		backoff:  ExponentialBackoff,
	}
}

// Run polls until ctx is cancelled. Each loop drains every due job before sleeping again.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.loop(ctx, slot)
		}(i)
	}

	wg.Wait()
	w.log.Info("worker stopped")
	return nil
}

func (w *Worker) loop(ctx context.Context, slot int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				processed, err := w.ProcessOne(ctx)
				if err != nil {
					w.log.Error("process job", "slot", slot, "err", err)
					break
				}
				if !processed || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
