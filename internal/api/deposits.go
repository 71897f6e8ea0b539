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
	"errors"
	"fmt"

	"marketplace-escrow-go/internal/bonus"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"
	"marketplace-escrow-go/internal/store"

	"go.uber.org/zap"
)

// Deposit credits a captured external payment to a user wallet. The
// external id makes the call idempotent, and the first deposit of a user
// also pays the welcome bonus.
func (s *EscrowService) Deposit(ctx context.Context, userId string, req *models.DepositRequest) (*models.WalletView, error) {
	zap.L().Info("Processing deposit",
		zap.String("user_id", userId),
		zap.String("amount", req.Amount),
		zap.String("external_id", req.ExternalId))

	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	if userId == "" || req.ExternalId == "" {
		return nil, fmt.Errorf("%w: user id and external id are required", store.ErrInvalidInput)
	}

	var (
		wallet *models.Wallet
		award  *bonus.Award
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		award = nil
		if _, err := tx.GetUser(ctx, userId); err != nil {
			return err
		}
		seen, err := tx.HasExternalId(ctx, req.ExternalId)
		if err != nil {
			return err
		}
		if seen {
			return fmt.Errorf("%w: external id %s", store.ErrDuplicateTransaction, req.ExternalId)
		}

		err = tx.Post(ctx, models.Posting{
			Source:      models.World,
			Destination: models.UserAccount(userId),
			Amount:      amount,
			Type:        models.TxDeposit,
			Description: "Deposit",
			Reference:   req.ExternalId,
			ExternalId:  req.ExternalId,
		})
		if err != nil {
			return err
		}

		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return err
		}
		award, err = bonus.EvaluateWelcome(ctx, tx, userId, req.ExternalId, settings)
		if err != nil {
			return err
		}
		if err := tx.Enqueue(ctx, models.EventDeposit, userId, map[string]string{
			"amount":     money.Format(amount),
			"externalId": req.ExternalId,
		}); err != nil {
			return err
		}

		wallet, err = tx.GetWallet(ctx, userId)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			zap.L().Info("Duplicate deposit ignored",
				zap.String("user_id", userId),
				zap.String("external_id", req.ExternalId))
		} else {
			zap.L().Error("Deposit processing failed",
				zap.String("user_id", userId),
				zap.String("amount", req.Amount),
				zap.Error(err))
		}
		return nil, err
	}

	award.Report()
	zap.L().Info("Deposit processed successfully",
		zap.String("user_id", userId),
		zap.String("amount", money.Format(amount)),
		zap.String("new_balance", money.Format(wallet.Balance)))
	return walletView(wallet), nil
}
