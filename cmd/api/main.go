package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/campuserp/internal/auth"
	"github.com/geocoder89/campuserp/internal/config"
	"github.com/geocoder89/campuserp/internal/db"
	httpx "github.com/geocoder89/campuserp/internal/http"
	"github.com/geocoder89/campuserp/internal/notifications"
	"github.com/geocoder89/campuserp/internal/observability"
	"github.com/geocoder89/campuserp/internal/phone"
	"github.com/geocoder89/campuserp/internal/queue"
	"github.com/geocoder89/campuserp/internal/queue/redisclient"
	"github.com/geocoder89/campuserp/internal/registration"
	"github.com/geocoder89/campuserp/internal/repo/memory"
	"github.com/geocoder89/campuserp/internal/repo/postgres"
	"github.com/geocoder89/campuserp/internal/security"
	"github.com/geocoder89/campuserp/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type backingStore interface {
	store.Store
	store.SignupReader
	store.Pinger
}

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: "campuserp-api",
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	st, closeStore, err := openStore(ctx, cfg, prom, log)
	if err != nil {
		log.Error("store init failed", "driver", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	if cfg.SeedDemoUsers {
		n, err := db.EnsureUsers(ctx, st, db.DemoUsers())
		if err != nil {
			log.Error("seeding demo users failed", "err", err)
			os.Exit(1)
		}
		log.Info("demo users ready", "created", n)
	}

	adminHash, err := adminPasswordHash(cfg)
	if err != nil {
		log.Error("admin credential not configured", "err", err)
		os.Exit(1)
	}

	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(log, notifications.LogNotifierConfig{
			Sleep: cfg.NotifierSleep(),
			Fail:  cfg.NotifierFail,
		}),
		notifications.ProtectedNotifierConfig{},
	)

	retry, closeQueue := openQueue(ctx, cfg, log)
	defer closeQueue()

	rule := phone.India(cfg.PhoneCountryCode)

	sessions := registration.NewSessions(registration.Deps{
		Store:    st,
		Notifier: notifier,
		Retry:    retry,
		Rule:     rule,
		Log:      log,
		Prom:     prom,
		Latency:  cfg.SimulatedLatency(),
	}, cfg.SessionTTL())
	go sweepSessions(ctx, sessions, log)

	validator := auth.NewValidator(st,
		auth.AdminCredential{Username: cfg.AdminUsername, PasswordHash: adminHash},
		auth.WithLatency(cfg.SimulatedLatency()),
		auth.WithLogger(log),
	)

	router := httpx.NewRouter(httpx.Deps{
		Env:                cfg.Env,
		ServiceName:        "campuserp-api",
		Log:                log,
		Authenticator:      validator,
		Tokens:             auth.NewManager(cfg.JWTSecret, cfg.AccessTTL()),
		Sessions:           sessions,
		Requests:           st,
		Users:              st,
		Rule:               rule,
		Ping:               st.Ping,
		Prom:               prom,
		Gatherer:           reg,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		LoginRateLimit:     cfg.LoginRateLimit,
		RequestTimeout:     10 * time.Second,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")
	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func openStore(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (backingStore, func(), error) {
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.NewStore(pool, prom), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store)
	}
}

// openQueue prefers redis so the worker process can drain retries.
// Without REDIS_ADDR failed notifications are only reported back to the applicant.
func openQueue(ctx context.Context, cfg config.Config, log *slog.Logger) (queue.Queue, func()) {
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, notification retries are disabled")
		return nil, func() {}
	}

	rc := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rc.Ping(pctx); err != nil {
		log.Warn("redis unavailable, notification retries are disabled", "addr", cfg.RedisAddr, "err", err)
		_ = rc.Close()
		return nil, func() {}
	}
	return rc, func() { _ = rc.Close() }
}

// adminPasswordHash only hashes a plain ADMIN_PASSWORD in dev.
func adminPasswordHash(cfg config.Config) (string, error) {
	if cfg.AdminPasswordHash != "" {
		return cfg.AdminPasswordHash, nil
	}
	if cfg.Env == "dev" && cfg.AdminPassword != "" {
		return security.HashPassword(cfg.AdminPassword)
	}
	return "", errors.New("set ADMIN_PASSWORD_HASH (or ADMIN_PASSWORD in dev)")
}

func sweepSessions(ctx context.Context, s *registration.Sessions, log *slog.Logger) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				log.Debug("expired signup sessions removed", "count", n)
			}
		}
	}
}
