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

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time check: *sqlTx must satisfy store.Tx.
var _ store.Tx = (*sqlTx)(nil)

const schema = `
	-- Users and the bonus guard flags
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'member',
		verified BOOLEAN NOT NULL DEFAULT 0,
		avatar_url TEXT NOT NULL DEFAULT '',
		banner_url TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		gallery TEXT NOT NULL DEFAULT '[]',
		has_made_first_sale BOOLEAN NOT NULL DEFAULT 0,
		has_completed_profile BOOLEAN NOT NULL DEFAULT 0,
		has_made_first_deposit BOOLEAN NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	-- Wallets (current state, all amounts in cents)
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0,
		escrow_balance INTEGER NOT NULL DEFAULT 0 CHECK (escrow_balance >= 0),
		total_earned INTEGER NOT NULL DEFAULT 0,
		reward_points INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Transactions (append-only, one row per wallet mutation)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		field TEXT NOT NULL,
		amount INTEGER NOT NULL,
		balance_before INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		external_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'completed',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_wallet ON transactions(wallet_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference ON transactions(reference);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_external_id ON transactions(external_id) WHERE external_id != '';

	-- Journal entries (double-entry, one row per posting)
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		source_account TEXT NOT NULL,
		destination_account TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount > 0),
		transaction_type TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_source ON journal_entries(source_account);
	CREATE INDEX IF NOT EXISTS idx_journal_destination ON journal_entries(destination_account);
	CREATE INDEX IF NOT EXISTS idx_journal_reference ON journal_entries(reference);

	-- Reservations and goods orders
	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		member_id TEXT NOT NULL REFERENCES users(id),
		creator_id TEXT NOT NULL REFERENCES users(id),
		amount INTEGER NOT NULL CHECK (amount > 0),
		fee INTEGER NOT NULL DEFAULT 0 CHECK (fee >= 0),
		status TEXT NOT NULL,
		duration_hours TEXT NOT NULL DEFAULT '0',
		member_confirmed BOOLEAN NOT NULL DEFAULT 0,
		creator_confirmed BOOLEAN NOT NULL DEFAULT 0,
		applied_commission_rate TEXT,
		cancelled_by TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		settled_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reservations_member ON reservations(member_id);
	CREATE INDEX IF NOT EXISTS idx_reservations_creator ON reservations(creator_id);
	CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status);

	CREATE TABLE IF NOT EXISTS reservation_escorts (
		reservation_id TEXT NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
		escort_id TEXT NOT NULL REFERENCES users(id),
		rate INTEGER NOT NULL CHECK (rate >= 0),
		status TEXT NOT NULL DEFAULT 'pending',
		presence_confirmed BOOLEAN NOT NULL DEFAULT 0,
		responded_at TIMESTAMP,
		PRIMARY KEY (reservation_id, escort_id)
	);

	-- Marketplace settings singleton
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		platform_commission_rate TEXT NOT NULL,
		platform_fee INTEGER NOT NULL,
		profile_completion_bonus INTEGER NOT NULL,
		first_sale_bonus INTEGER NOT NULL,
		welcome_bonus_amount INTEGER NOT NULL,
		call_rates TEXT NOT NULL DEFAULT '{}',
		withdrawal_min_amount INTEGER NOT NULL,
		withdrawal_max_amount INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Outbox of committed events waiting for the relay
	CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		delivered_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_events(status, created_at);
`

// sqlTx implements store.Tx on top of a single immediate SQLite transaction.
type sqlTx struct {
	tx      *sql.Tx
	nowFn   func() time.Time
	pending []models.JournalEntry
}

// GetWallet returns the wallet, creating an empty one on first use.
func (t *sqlTx) GetWallet(ctx context.Context, walletId string) (*models.Wallet, error) {
	if walletId == "" {
		return nil, fmt.Errorf("%w: wallet id cannot be empty", store.ErrInvalidInput)
	}

	wallet, err := scanWallet(t.tx.QueryRowContext(ctx, queryGetWallet, walletId))
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := t.tx.ExecContext(ctx, queryInsertWallet, walletId); err != nil {
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
		wallet, err = scanWallet(t.tx.QueryRowContext(ctx, queryGetWallet, walletId))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet %s: %w", walletId, err)
	}
	return wallet, nil
}

// Post moves money between two accounts, writing one transaction record per
// mutated wallet and one journal entry for the movement.
func (t *sqlTx) Post(ctx context.Context, p models.Posting) error {
	if p.Amount <= 0 {
		return fmt.Errorf("%w: posting amount must be positive, got %d", store.ErrInvalidInput, p.Amount)
	}
	if p.Source == p.Destination {
		return fmt.Errorf("%w: posting source and destination are both %s", store.ErrInvalidInput, p.Source)
	}

	zap.L().Debug("Posting ledger movement",
		zap.String("source", p.Source.String()),
		zap.String("destination", p.Destination.String()),
		zap.Int64("amount", p.Amount),
		zap.String("type", string(p.Type)),
		zap.String("reference", p.Reference))

	externalId := p.ExternalId
	if !p.Source.IsWorld() {
		if err := t.applyDelta(ctx, p.Source, -p.Amount, 0, p, externalId); err != nil {
			return err
		}
		externalId = ""
	}
	if !p.Destination.IsWorld() {
		earned := int64(0)
		if p.Earned {
			earned = p.Amount
		}
		if err := t.applyDelta(ctx, p.Destination, p.Amount, earned, p, externalId); err != nil {
			return err
		}
	}

	entry := models.JournalEntry{
		Id:                 uuid.New().String(),
		SourceAccount:      p.Source.String(),
		DestinationAccount: p.Destination.String(),
		Amount:             p.Amount,
		Type:               p.Type,
		Reference:          p.Reference,
		CreatedAt:          t.nowFn(),
	}
	if _, err := t.tx.ExecContext(ctx, queryInsertJournalEntry,
		entry.Id, entry.SourceAccount, entry.DestinationAccount, entry.Amount,
		string(entry.Type), entry.Reference, entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to add journal entry: %w", err)
	}
	t.pending = append(t.pending, entry)
	return nil
}

// AwardPoints credits reward points. Points are not money and produce no
// journal entry.
func (t *sqlTx) AwardPoints(ctx context.Context, walletId string, points int64, description, reference string) error {
	if points <= 0 {
		return fmt.Errorf("%w: reward points must be positive, got %d", store.ErrInvalidInput, points)
	}
	p := models.Posting{
		Destination: models.Account{WalletId: walletId, Field: models.FieldRewardPoints},
		Amount:      points,
		Type:        models.TxReward,
		Description: description,
		Reference:   reference,
	}
	return t.applyDelta(ctx, p.Destination, points, 0, p, "")
}

// applyDelta updates one wallet field under optimistic locking and appends
// the matching transaction record.
func (t *sqlTx) applyDelta(ctx context.Context, account models.Account, delta, earned int64, p models.Posting, externalId string) error {
	wallet, err := t.GetWallet(ctx, account.WalletId)
	if err != nil {
		return err
	}

	var before int64
	var update string
	switch account.Field {
	case models.FieldBalance:
		before, update = wallet.Balance, queryUpdateWalletBalance
	case models.FieldEscrow:
		before, update = wallet.EscrowBalance, queryUpdateWalletEscrow
	case models.FieldRewardPoints:
		before, update = wallet.RewardPoints, queryUpdateWalletPoints
	default:
		return fmt.Errorf("%w: unknown wallet field %q", store.ErrInvalidInput, account.Field)
	}

	after := before + delta
	if delta < 0 && after < 0 && (account.Field == models.FieldEscrow || !p.AllowOverdraft) {
		return fmt.Errorf("%w: %s holds %d, needs %d", store.ErrInsufficientFunds, account, before, -delta)
	}

	now := t.nowFn()
	result, err := t.tx.ExecContext(ctx, update, after, earned, now, wallet.Id, wallet.Version)
	if err != nil {
		return fmt.Errorf("failed to update wallet %s: %w", wallet.Id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("wallet %s update failed - %w", wallet.Id, store.ErrConcurrentModification)
	}

	_, err = t.tx.ExecContext(ctx, queryInsertTransaction,
		uuid.New().String(), wallet.Id, string(p.Type), string(account.Field),
		delta, before, after, p.Description, p.Reference, externalId, "completed", now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: external id %s already recorded", store.ErrDuplicateTransaction, externalId)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// HasExternalId reports whether a record with this external id exists.
func (t *sqlTx) HasExternalId(ctx context.Context, externalId string) (bool, error) {
	var existingId string
	err := t.tx.QueryRowContext(ctx, queryCheckExternalId, externalId).Scan(&existingId)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate transaction: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*models.Wallet, error) {
	var w models.Wallet
	if err := row.Scan(&w.Id, &w.Balance, &w.EscrowBalance, &w.TotalEarned, &w.RewardPoints, &w.Version, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}
