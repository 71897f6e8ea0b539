package api

import (
	"context"
	"fmt"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"
	"marketplace-escrow-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Withdraw pays funds out of a user's spendable balance. The amount must
// sit inside the configured withdrawal bounds; a zero maximum means no cap.
func (s *EscrowService) Withdraw(ctx context.Context, userId string, req *models.WithdrawRequest) (*models.WalletView, error) {
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	reference := req.Reference
	if reference == "" {
		reference = uuid.New().String()
	}

	zap.L().Info("Processing withdrawal",
		zap.String("user_id", userId),
		zap.String("amount", money.Format(amount)),
		zap.String("reference", reference))

	var wallet *models.Wallet
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetUser(ctx, userId); err != nil {
			return err
		}
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}
		if amount < settings.WithdrawalMinAmount {
			return fmt.Errorf("%w: minimum withdrawal is %s", store.ErrInvalidInput, money.Format(settings.WithdrawalMinAmount))
		}
		if settings.WithdrawalMaxAmount > 0 && amount > settings.WithdrawalMaxAmount {
			return fmt.Errorf("%w: maximum withdrawal is %s", store.ErrInvalidInput, money.Format(settings.WithdrawalMaxAmount))
		}

		err = tx.Post(ctx, models.Posting{
			Source:      models.UserAccount(userId),
			Destination: models.World,
			Amount:      amount,
			Type:        models.TxWithdrawal,
			Description: "Withdrawal",
			Reference:   reference,
		})
		if err != nil {
			return err
		}
		if err := tx.Enqueue(ctx, models.EventWithdrawal, userId, map[string]string{
			"amount":    money.Format(amount),
			"reference": reference,
		}); err != nil {
			return err
		}

		wallet, err = tx.GetWallet(ctx, userId)
		return err
	})
	if err != nil {
		zap.L().Error("Withdrawal processing failed",
			zap.String("user_id", userId),
			zap.String("amount", money.Format(amount)),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("Withdrawal processed successfully",
		zap.String("user_id", userId),
		zap.String("amount", money.Format(amount)),
		zap.String("new_balance", money.Format(wallet.Balance)))
	return walletView(wallet), nil
}
