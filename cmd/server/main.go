package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-escrow-go/internal/api"
	"marketplace-escrow-go/internal/common"
	"marketplace-escrow-go/internal/config"
	"marketplace-escrow-go/internal/relay"
	"marketplace-escrow-go/internal/server"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

func main() {
	withRelay := flag.Bool("with-relay", false, "Also run the outbox relay in this process")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		common.BootstrapLogger()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Log)
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting marketplace escrow server", zap.String("addr", cfg.Server.Addr))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if _, err := common.SeedSettings(ctx, services.EscrowService, cfg.Server.SettingsFile, false); err != nil {
		zap.L().Warn("Settings were not seeded, money operations fail until they are configured",
			zap.String("file", cfg.Server.SettingsFile), zap.Error(err))
	}

	scheduler, err := startReconciliation(ctx, services.EscrowService, cfg.Reconcile.Interval)
	if err != nil {
		zap.L().Fatal("Failed to start reconciliation job", zap.Error(err))
	}

	var outboxRelay *relay.Relay
	if *withRelay {
		sinks, sinksCleanup, err := common.InitializeSinks(ctx, cfg)
		if err != nil {
			zap.L().Fatal("Failed to initialize relay sinks", zap.Error(err))
		}
		defer sinksCleanup()

		outboxRelay = relay.NewRelay(relay.RelayConfig{
			Store:           services.DbService,
			Sinks:           sinks,
			PollingInterval: cfg.Relay.PollingInterval,
			CleanupInterval: cfg.Relay.CleanupInterval,
			Retention:       cfg.Relay.Retention,
			BatchSize:       cfg.Relay.BatchSize,
			MaxAttempts:     cfg.Relay.MaxAttempts,
		})
		if err := outboxRelay.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start relay", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(services.EscrowService, cfg.Auth).Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	zap.L().Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, draining requests...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Graceful shutdown failed", zap.Error(err))
	}
	if err := scheduler.Shutdown(); err != nil {
		zap.L().Warn("Failed to stop scheduler", zap.Error(err))
	}
	if outboxRelay != nil {
		outboxRelay.Stop()
	}
	zap.L().Info("Server stopped")
}

// startReconciliation schedules the periodic wallet reconciliation and
// conservation check. A run still in progress delays the next one.
func startReconciliation(ctx context.Context, svc *api.EscrowService, interval time.Duration) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, interval)
			defer cancel()
			if _, err := svc.ReconcileAll(runCtx); err != nil {
				zap.L().Error("Reconciliation run failed", zap.Error(err))
			}
		}),
		gocron.WithName("reconciliation"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	zap.L().Info("Reconciliation job scheduled", zap.Duration("interval", interval))
	return scheduler, nil
}
