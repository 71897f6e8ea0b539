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
	"errors"
	"flag"
	"fmt"

	"marketplace-escrow-go/internal/common"
	"marketplace-escrow-go/internal/config"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"
	"marketplace-escrow-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type withdrawalRequest struct {
	email     string
	amount    string
	reference string
}

func parseAndValidateFlags() (*withdrawalRequest, error) {
	emailFlag := flag.String("email", "", "User email (required)")
	amountFlag := flag.String("amount", "", "Amount to withdraw in EUR, e.g. 25.00 (required)")
	referenceFlag := flag.String("reference", "", "Payout reference (default: generated)")
	flag.Parse()

	if *emailFlag == "" || *amountFlag == "" {
		return nil, fmt.Errorf("flags are required: --email, --amount")
	}
	if _, err := money.ParsePositive(*amountFlag); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", *amountFlag, err)
	}

	reference := *referenceFlag
	if reference == "" {
		reference = "payout-" + uuid.New().String()
	}

	return &withdrawalRequest{
		email:     *emailFlag,
		amount:    *amountFlag,
		reference: reference,
	}, nil
}

func main() {
	ctx := context.Background()

	req, err := parseAndValidateFlags()
	if err != nil {
		common.BootstrapLogger()
		zap.L().Fatal("Invalid arguments", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		common.BootstrapLogger()
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Log)
	defer loggerCleanup()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := services.DbService.GetUserByEmail(ctx, req.email)
	if err != nil {
		zap.L().Fatal("User not found", zap.String("email", req.email), zap.Error(err))
	}

	zap.L().Info("Processing withdrawal",
		zap.String("user_id", user.Id),
		zap.String("amount", req.amount),
		zap.String("reference", req.reference))

	wallet, err := services.EscrowService.Withdraw(ctx, user.Id, &models.WithdrawRequest{
		Amount:    req.amount,
		Reference: req.reference,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInsufficientFunds):
			zap.L().Fatal("Insufficient funds", zap.String("user_id", user.Id), zap.Error(err))
		case errors.Is(err, store.ErrInvalidInput):
			zap.L().Fatal("Withdrawal outside the allowed limits", zap.Error(err))
		default:
			zap.L().Fatal("Withdrawal failed", zap.Error(err))
		}
	}

	common.PrintHeader("WITHDRAWAL RECORDED", common.DefaultWidth)
	fmt.Printf("User:         %s (%s)\n", user.Name, user.Email)
	fmt.Printf("Amount:       %s EUR\n", req.amount)
	fmt.Printf("Reference:    %s\n", req.reference)
	fmt.Printf("New balance:  %s EUR\n", wallet.Balance)
	common.PrintFooter("Payout must now be executed with the payment provider", common.DefaultWidth)
}
