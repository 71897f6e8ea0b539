/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-escrow-go/internal/common"
	"marketplace-escrow-go/internal/config"
	"marketplace-escrow-go/internal/relay"

	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "Deliver every pending event once and exit")
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

	zap.L().Info("Starting outbox relay")

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	sinks, sinksCleanup, err := common.InitializeSinks(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize sinks", zap.Error(err))
	}
	defer sinksCleanup()

	for _, s := range sinks {
		zap.L().Info("Sink enabled", zap.String("sink", s.Name()))
	}

	r := relay.NewRelay(relay.RelayConfig{
		Store:           dbService,
		Sinks:           sinks,
		PollingInterval: cfg.Relay.PollingInterval,
		CleanupInterval: cfg.Relay.CleanupInterval,
		Retention:       cfg.Relay.Retention,
		BatchSize:       cfg.Relay.BatchSize,
		MaxAttempts:     cfg.Relay.MaxAttempts,
	})

	if *once {
		delivered, err := r.Drain(ctx)
		if err != nil {
			zap.L().Fatal("Drain failed", zap.Int("delivered", delivered), zap.Error(err))
		}
		zap.L().Info("Drain complete", zap.Int("delivered", delivered))
		return
	}

	if err := r.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start relay", zap.Error(err))
	}
	zap.L().Info("Relay running", zap.Duration("polling_interval", cfg.Relay.PollingInterval))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping relay...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Relay stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
