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

package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-escrow-go/internal/metrics"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"go.uber.org/zap"
)

// Sink receives committed outbox events. Delivery is at least once, so a
// sink must tolerate seeing the same event id twice.
type Sink interface {
	Name() string
	Publish(ctx context.Context, event models.OutboxEvent) error
}

// RelayConfig contains configuration for Relay
type RelayConfig struct {
	Store           store.OutboxStore
	Sinks           []Sink
	PollingInterval time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
	BatchSize       int
	MaxAttempts     int
}

// Relay polls the outbox and forwards committed events to every sink
type Relay struct {
	store           store.OutboxStore
	sinks           []Sink
	pollingInterval time.Duration
	cleanupInterval time.Duration
	retention       time.Duration
	batchSize       int
	maxAttempts     int

	// Control channels
	stopChan    chan struct{}
	doneChan    chan struct{}
	cleanupDone chan struct{}
}

// NewRelay creates a new outbox relay
func NewRelay(cfg RelayConfig) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Relay{
		store:           cfg.Store,
		sinks:           cfg.Sinks,
		pollingInterval: cfg.PollingInterval,
		cleanupInterval: cfg.CleanupInterval,
		retention:       cfg.Retention,
		batchSize:       cfg.BatchSize,
		maxAttempts:     cfg.MaxAttempts,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
		cleanupDone:     make(chan struct{}),
	}
}

// Start begins relaying outbox events
func (d *Relay) Start(ctx context.Context) error {
	if len(d.sinks) == 0 {
		return fmt.Errorf("no sinks configured")
	}
	if d.pollingInterval <= 0 || d.cleanupInterval <= 0 {
		return fmt.Errorf("polling and cleanup intervals must be positive")
	}

	zap.L().Info("Starting outbox relay")

	go d.pollLoop(ctx)
	go d.cleanupLoop(ctx)

	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	zap.L().Info("Outbox relay started successfully",
		zap.Strings("sinks", names),
		zap.Duration("polling_interval", d.pollingInterval),
		zap.Int("batch_size", d.batchSize))

	return nil
}

// Stop gracefully stops the relay
func (d *Relay) Stop() {
	zap.L().Info("Stopping outbox relay")
	close(d.stopChan)
	<-d.doneChan
	<-d.cleanupDone
	zap.L().Info("Outbox relay stopped")
}

// pollLoop runs the main polling loop
func (d *Relay) pollLoop(ctx context.Context) {
	defer close(d.doneChan)

	ticker := time.NewTicker(d.pollingInterval)
	defer ticker.Stop()

	d.drainLogged(ctx)

	for {
		select {
		case <-ticker.C:
			d.drainLogged(ctx)
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (d *Relay) drainLogged(ctx context.Context) {
	delivered, err := d.Drain(ctx)
	if err != nil {
		zap.L().Error("Outbox drain failed", zap.Error(err))
		return
	}
	if delivered > 0 {
		zap.L().Info("Relayed outbox events", zap.Int("delivered", delivered))
	}
}

// Drain forwards pending events until the outbox is empty or a batch makes
// no progress. It returns the number of events delivered.
func (d *Relay) Drain(ctx context.Context) (int, error) {
	delivered := 0
	for {
		events, err := d.store.FetchPendingEvents(ctx, d.batchSize)
		if err != nil {
			return delivered, err
		}
		if len(events) == 0 {
			return delivered, nil
		}

		progress := 0
		for _, event := range events {
			if err := ctx.Err(); err != nil {
				return delivered, err
			}
			if d.deliver(ctx, event) {
				progress++
			}
		}
		delivered += progress

		if progress == 0 || len(events) < d.batchSize {
			return delivered, nil
		}
	}
}

// deliver publishes event to every sink and records the outcome.
func (d *Relay) deliver(ctx context.Context, event models.OutboxEvent) bool {
	var errs []error
	for _, sink := range d.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			metrics.Escrow().ObserveRelay(sink.Name(), "failed")
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		metrics.Escrow().ObserveRelay(sink.Name(), "delivered")
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		zap.L().Warn("Outbox event delivery failed",
			zap.String("event_id", event.Id),
			zap.String("event_type", event.EventType),
			zap.Int("attempts", event.Attempts+1),
			zap.Error(err))
		if markErr := d.store.MarkEventFailed(ctx, event.Id, err.Error(), d.maxAttempts); markErr != nil {
			zap.L().Error("Failed to record delivery failure", zap.String("event_id", event.Id), zap.Error(markErr))
		}
		return false
	}

	if err := d.store.MarkEventDelivered(ctx, event.Id); err != nil {
		zap.L().Error("Failed to mark event delivered", zap.String("event_id", event.Id), zap.Error(err))
		return false
	}
	zap.L().Debug("Outbox event delivered",
		zap.String("event_id", event.Id),
		zap.String("event_type", event.EventType),
		zap.String("aggregate_id", event.AggregateId))
	return true
}

// cleanupLoop purges delivered events older than the retention window
func (d *Relay) cleanupLoop(ctx context.Context) {
	defer close(d.cleanupDone)

	ticker := time.NewTicker(d.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			purged, err := d.store.PurgeDeliveredEvents(ctx, time.Now().UTC().Add(-d.retention))
			if err != nil {
				zap.L().Error("Failed to purge delivered events", zap.Error(err))
				continue
			}
			if purged > 0 {
				zap.L().Debug("Purged delivered events", zap.Int64("count", purged))
			}
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}
