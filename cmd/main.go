package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/balancerd/config"
	"github.com/angeloszaimis/balancerd/internal/admission"
	"github.com/angeloszaimis/balancerd/internal/healthcheck"
	"github.com/angeloszaimis/balancerd/internal/metrics"
	"github.com/angeloszaimis/balancerd/internal/proxy"
	"github.com/angeloszaimis/balancerd/internal/upstream"
	"github.com/angeloszaimis/balancerd/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, true, cfg.Env, cfg.LogFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Error starting proxy", slog.Any("err", err))
		os.Exit(1)
	}
}

// run wires the shared state, starts the two background loops and serves
// until ctx is cancelled or the listener fails.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	pool := upstream.NewPool(cfg.Upstreams)
	limiter := admission.NewLimiter(cfg.MaxRequestsPerMinute, log)

	collector := metrics.NewCollector(256, log)
	collector.Start(ctx)

	checker := healthcheck.NewChecker(pool, cfg.HealthCheckPath, cfg.HealthCheckInterval(), log, collector)
	go checker.Run(ctx)

	if limiter.Enabled() {
		go limiter.Run(ctx)
	}

	srv, err := proxy.New(cfg.Bind, pool, limiter, collector, log)
	if err != nil {
		return err
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
		return nil
	case err := <-srvErrCh:
		return err
	}
}
