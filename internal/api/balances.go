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

package api

import (
	"context"
	"fmt"

	"marketplace-escrow-go/internal/metrics"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"
	"marketplace-escrow-go/internal/store"

	"go.uber.org/zap"
)

// GetWallet returns the current balances of a user or the platform wallet
func (s *EscrowService) GetWallet(ctx context.Context, walletId string) (*models.WalletView, error) {
	if walletId == "" {
		return nil, fmt.Errorf("%w: wallet id is required", store.ErrInvalidInput)
	}

	wallet, err := s.store.GetWallet(ctx, walletId)
	if err != nil {
		zap.L().Error("Failed to get wallet", zap.String("wallet_id", walletId), zap.Error(err))
		return nil, err
	}
	return walletView(wallet), nil
}

// GetTransactionHistory returns paginated ledger records for a wallet
func (s *EscrowService) GetTransactionHistory(ctx context.Context, walletId string, limit, offset int) ([]models.TransactionRecord, error) {
	if walletId == "" {
		return nil, fmt.Errorf("%w: wallet id is required", store.ErrInvalidInput)
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.store.GetWallet(ctx, walletId); err != nil {
		return nil, err
	}

	transactions, err := s.store.GetTransactionHistory(ctx, walletId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("wallet_id", walletId),
			zap.Error(err))
		return nil, err
	}

	result := make([]models.TransactionRecord, len(transactions))
	for i, tx := range transactions {
		result[i] = transactionRecord(tx)
	}
	return result, nil
}

// ReconcileWallet verifies a wallet against its ledger records
func (s *EscrowService) ReconcileWallet(ctx context.Context, walletId string) error {
	return s.store.ReconcileWallet(ctx, walletId)
}

// Conservation reports whether the money held in wallets and escrow equals
// deposits minus withdrawals, and publishes the difference as a gauge.
func (s *EscrowService) Conservation(ctx context.Context) (*models.ConservationReport, error) {
	report, err := s.store.Conservation(ctx)
	if err != nil {
		return nil, err
	}

	metrics.Escrow().SetConservationDifference(report.Difference)
	if !report.Balanced() {
		zap.L().Error("Conservation check failed",
			zap.String("user_balances", money.Format(report.UserBalances)),
			zap.String("platform_balance", money.Format(report.PlatformBalance)),
			zap.String("escrow_balance", money.Format(report.EscrowBalance)),
			zap.String("deposits", money.Format(report.TotalDeposits)),
			zap.String("withdrawals", money.Format(report.TotalWithdrawals)),
			zap.String("difference", money.Format(report.Difference)))
	}
	return report, nil
}

// ReconcileAll reconciles the platform wallet and every active user wallet
// and then runs the conservation check. It returns the first failure.
func (s *EscrowService) ReconcileAll(ctx context.Context) (*models.ConservationReport, error) {
	users, err := s.store.GetUsers(ctx)
	if err != nil {
		return nil, err
	}

	ids := []string{models.PlatformWalletId}
	for _, u := range users {
		ids = append(ids, u.Id)
	}

	var firstErr error
	for _, id := range ids {
		if err := s.store.ReconcileWallet(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	report, err := s.Conservation(ctx)
	if err != nil {
		return nil, err
	}
	if firstErr != nil {
		return report, firstErr
	}

	zap.L().Info("Reconciliation completed",
		zap.Int("wallets", len(ids)),
		zap.Bool("balanced", report.Balanced()))
	return report, nil
}
