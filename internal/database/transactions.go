package database

import (
	"context"
	"errors"
	"fmt"

	"marketplace-escrow-go/internal/models"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// GetTransactionHistory returns the wallet's ledger records, newest first.
func (s *Service) GetTransactionHistory(ctx context.Context, walletId string, limit, offset int) ([]models.Transaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("wallet_id", walletId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, walletId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction history: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var txType, field string
		err := rows.Scan(&tx.Id, &tx.WalletId, &txType, &field, &tx.Amount,
			&tx.BalanceBefore, &tx.BalanceAfter, &tx.Description, &tx.Reference,
			&tx.ExternalId, &tx.Status, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Type = models.TransactionType(txType)
		tx.Field = models.WalletField(field)
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction history: %w", err)
	}

	return transactions, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
