package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fwdguard/circuit-guard/config"
	"github.com/fwdguard/circuit-guard/internal/circuitbreaker"
	"github.com/fwdguard/circuit-guard/internal/handler"
	"github.com/fwdguard/circuit-guard/internal/health"
	"github.com/fwdguard/circuit-guard/internal/httpserver"
	"github.com/fwdguard/circuit-guard/internal/metrics"
	"github.com/fwdguard/circuit-guard/internal/upstream"
	"github.com/fwdguard/circuit-guard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(1024, log)
	collector.Start(ctx)

	defaults, err := breakerDefaults(cfg.Breaker)
	if err != nil {
		log.Error("Failed to parse breaker defaults", slog.Any("err", err))
		os.Exit(1)
	}

	registry := circuitbreaker.NewRegistry(defaults, log, collector)

	upstreams, err := initializeUpstreams(cfg, registry, log)
	if err != nil {
		log.Error("Failed to initialize upstreams", slog.Any("err", err))
		os.Exit(1)
	}

	watchInterval, err := time.ParseDuration(cfg.HealthCheck.Interval)
	if err != nil {
		log.Error("Failed to parse health check interval", slog.Any("err", err))
		os.Exit(1)
	}
	go health.Watch(ctx, registry, watchInterval, log)

	guardedHandler := handler.NewGuardedHandler(log, upstreams)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(guardedHandler, collector, registry))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func breakerDefaults(bc config.BreakerConfig) (circuitbreaker.Config, error) {
	resetTimeout, err := time.ParseDuration(bc.ResetTimeout)
	if err != nil {
		return circuitbreaker.Config{}, err
	}

	maxRetryDelay, err := time.ParseDuration(bc.MaxRetryDelay)
	if err != nil {
		return circuitbreaker.Config{}, err
	}

	return circuitbreaker.Config{
		FailureThreshold: bc.FailureThreshold,
		SuccessThreshold: bc.SuccessThreshold,
		ResetTimeout:     resetTimeout,
		HalfOpenMaxCalls: bc.HalfOpenMaxCalls,
		ExponentialBase:  bc.ExponentialBase,
		MaxRetryDelay:    maxRetryDelay,
	}, nil
}

func initializeUpstreams(cfg *config.Config, registry *circuitbreaker.Registry, log *slog.Logger) ([]*upstream.Upstream, error) {
	var upstreams []*upstream.Upstream

	for _, uc := range cfg.Upstreams {
		u, err := url.Parse(uc.URL)
		if err != nil {
			log.Error("Failed to parse URL",
				slog.String("url", uc.URL),
				slog.String("error", err.Error()))
			continue
		}

		cb, err := registry.GetOrCreate(uc.Name)
		if err != nil {
			return nil, err
		}

		upstreams = append(upstreams, upstream.New(uc.Name, u, cb))
		log.Info("Registered guarded upstream",
			slog.String("name", uc.Name),
			slog.String("url", uc.URL))
	}

	if len(upstreams) == 0 {
		return nil, os.ErrInvalid
	}

	return upstreams, nil
}
