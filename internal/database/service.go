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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace-escrow-go/internal/metrics"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time checks: *Service backs both the API and the relay.
var (
	_ store.EscrowStore = (*Service)(nil)
	_ store.OutboxStore = (*Service)(nil)
)

type Service struct {
	db           *sql.DB
	maxRetries   int
	retryBackoff time.Duration
	nowFn        func() time.Time
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	if cfg.TxMaxRetries < 0 {
		return nil, fmt.Errorf("transaction retries cannot be negative, got %d", cfg.TxMaxRetries)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	// _txlock=immediate makes every BeginTx take the write lock up front, so
	// a read-modify-write inside RunInTx is serializable.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d&_txlock=immediate&_foreign_keys=1",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{
		db:           db,
		maxRetries:   cfg.TxMaxRetries,
		retryBackoff: cfg.TxRetryBackoff,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
	if err := service.initSchema(ctx, cfg.CreateDummyUsers); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) initSchema(ctx context.Context, createDummyUsers bool) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, queryInsertWallet, models.PlatformWalletId); err != nil {
		return fmt.Errorf("failed to create platform wallet: %w", err)
	}

	// Insert dummy users for testing if configured to do so
	if createDummyUsers {
		users := []struct {
			name  string
			email string
			role  string
		}{
			{"Alice Johnson", "alice.johnson@example.com", models.RoleMember},
			{"Bob Smith", "bob.smith@example.com", models.RoleCreator},
			{"Carol Williams", "carol.williams@example.com", models.RoleEscort},
		}

		for _, user := range users {
			id := uuid.New().String()
			_, err := s.db.ExecContext(ctx, queryInsertDummyUser, id, user.name, user.email, user.role)
			if err != nil {
				zap.L().Error("Failed to insert dummy user", zap.String("name", user.name), zap.Error(err))
			} else {
				zap.L().Info("Dummy user created", zap.String("id", id), zap.String("name", user.name))
			}
		}
	} else {
		zap.L().Info("Skipping dummy user creation (CREATE_DUMMY_USERS=false)")
	}

	return nil
}

// RunInTx executes fn inside one immediate transaction. Write conflicts and
// busy errors roll the attempt back and rerun fn from scratch, so fn must
// derive every decision from what it reads through tx.
func (s *Service) RunInTx(ctx context.Context, fn store.TxFunc) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.Escrow().ObserveTxRetry()
			zap.L().Warn("Retrying transaction after conflict",
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-time.After(s.retryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	zap.L().Error("Transaction retries exhausted", zap.Int("max_retries", s.maxRetries), zap.Error(lastErr))
	return fmt.Errorf("%w: %v", store.ErrConcurrencyConflict, lastErr)
}

func (s *Service) runOnce(ctx context.Context, fn store.TxFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqlTx{tx: tx, nowFn: s.nowFn}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	if errors.Is(err, store.ErrConcurrentModification) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
