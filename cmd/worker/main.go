package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/campuserp/internal/config"
	"github.com/geocoder89/campuserp/internal/notifications"
	"github.com/geocoder89/campuserp/internal/observability"
	"github.com/geocoder89/campuserp/internal/queue/redisclient"
	"github.com/geocoder89/campuserp/internal/queue/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	// retries are only ever enqueued to redis, there is nothing to drain without it
	if cfg.RedisAddr == "" {
		log.Error("REDIS_ADDR is required for the worker")
		os.Exit(1)
	}

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: "campuserp-worker",
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	q := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer q.Close()

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(log, notifications.LogNotifierConfig{
			Sleep: cfg.NotifierSleep(),
			Fail:  cfg.NotifierFail,
		}),
		notifications.ProtectedNotifierConfig{},
	)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval: 500 * time.Millisecond,
		Concurrency:  cfg.WorkerConcurrency,
		WorkerID:     workerID,
	}, q, notifier, log, observability.NewJobMetrics(), prom)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", w.HealthHandler(q))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker started", "worker_id", workerID, "concurrency", cfg.WorkerConcurrency)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	sctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)

	log.Info("worker shutdown complete")
}
