package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"go.uber.org/zap"
)

// GetWallet returns a wallet snapshot. Users that never received money get
// an empty wallet; unknown ids return store.ErrNotFound.
func (s *Service) GetWallet(ctx context.Context, walletId string) (*models.Wallet, error) {
	zap.L().Debug("Getting wallet", zap.String("wallet_id", walletId))

	wallet, err := scanWallet(s.db.QueryRowContext(ctx, queryGetWallet, walletId))
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query wallet: %w", err)
	}

	var exists int
	err = s.db.QueryRowContext(ctx, queryUserExists, walletId).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: wallet %s", store.ErrNotFound, walletId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &models.Wallet{Id: walletId}, nil
}

// ReconcileWallet checks that every wallet field equals the sum of its
// transaction records.
func (s *Service) ReconcileWallet(ctx context.Context, walletId string) error {
	wallet, err := s.GetWallet(ctx, walletId)
	if err != nil {
		return err
	}

	fields := []struct {
		field models.WalletField
		value int64
	}{
		{models.FieldBalance, wallet.Balance},
		{models.FieldEscrow, wallet.EscrowBalance},
		{models.FieldRewardPoints, wallet.RewardPoints},
	}

	for _, f := range fields {
		var recorded int64
		err := s.db.QueryRowContext(ctx, querySumWalletRecords, walletId, string(f.field)).Scan(&recorded)
		if err != nil {
			return fmt.Errorf("failed to sum transactions: %w", err)
		}
		if recorded != f.value {
			zap.L().Error("Wallet reconciliation mismatch",
				zap.String("wallet_id", walletId),
				zap.String("field", string(f.field)),
				zap.Int64("wallet_value", f.value),
				zap.Int64("records_sum", recorded))
			return fmt.Errorf("wallet %s %s mismatch: wallet=%d, records=%d", walletId, f.field, f.value, recorded)
		}
	}

	zap.L().Debug("Wallet reconciled", zap.String("wallet_id", walletId))
	return nil
}

// Conservation compares every balance held in the system with the net
// amount that entered from outside.
func (s *Service) Conservation(ctx context.Context) (*models.ConservationReport, error) {
	report := &models.ConservationReport{}

	if err := s.db.QueryRowContext(ctx, querySumUserBalances, models.PlatformWalletId).Scan(&report.UserBalances); err != nil {
		return nil, fmt.Errorf("failed to sum user balances: %w", err)
	}

	platform, err := s.GetWallet(ctx, models.PlatformWalletId)
	if err != nil {
		return nil, err
	}
	report.PlatformBalance = platform.Balance
	report.EscrowBalance = platform.EscrowBalance

	world := models.World.String()
	if err := s.db.QueryRowContext(ctx, querySumWorldInflow, world).Scan(&report.TotalDeposits); err != nil {
		return nil, fmt.Errorf("failed to sum deposits: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, querySumWorldOutflow, world).Scan(&report.TotalWithdrawals); err != nil {
		return nil, fmt.Errorf("failed to sum withdrawals: %w", err)
	}

	held := report.UserBalances + report.PlatformBalance + report.EscrowBalance
	report.Difference = held - (report.TotalDeposits - report.TotalWithdrawals)
	return report, nil
}
