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
	"fmt"

	"marketplace-escrow-go/internal/api"
	"marketplace-escrow-go/internal/common"
	"marketplace-escrow-go/internal/config"
	"marketplace-escrow-go/internal/formance"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers      int
	fundedUsers     int
	failedUsers     int
	mirrorMismatch  int
	reconcileFailed int
}

// mirrorCheck compares a local wallet balance with the Formance mirror.
type mirrorCheck func(ctx context.Context, address string, local int64) bool

func printUserHeader(user models.User) {
	fmt.Printf("\n┌─ User: %s (%s) [%s]\n", user.Name, user.Email, user.Role)
	fmt.Printf("│  ID: %s\n", user.Id)
}

func processUser(ctx context.Context, svc *api.EscrowService, user models.User, check mirrorCheck, stats *balanceStats) error {
	wallet, err := svc.GetWallet(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to get wallet: %w", err)
	}

	if err := svc.ReconcileWallet(ctx, user.Id); err != nil {
		stats.reconcileFailed++
		zap.L().Error("Wallet does not reconcile", zap.String("user_id", user.Id), zap.Error(err))
	}

	cents, err := money.Parse(wallet.Balance)
	if err != nil {
		return err
	}
	if cents != 0 {
		stats.fundedUsers++
	}

	printUserHeader(user)
	common.PrintWallet("balance", wallet, true)

	if check != nil && !check(ctx, models.UserAccount(user.Id).String(), cents) {
		stats.mirrorMismatch++
	}
	return nil
}

func newMirrorCheck(mirror *formance.Service) mirrorCheck {
	return func(ctx context.Context, address string, local int64) bool {
		remote, err := mirror.AccountBalance(ctx, address)
		if err != nil {
			zap.L().Warn("Failed to read mirror balance", zap.String("address", address), zap.Error(err))
			return false
		}
		if remote != local {
			fmt.Printf("   mirror: %s EUR (differs from local)\n", money.Format(remote))
			return false
		}
		return true
	}
}

func main() {
	ctx := context.Background()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	roleFlag := flag.String("role", "", "Filter by role (optional)")
	mirrorFlag := flag.Bool("mirror", false, "Compare balances with the Formance mirror")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		common.BootstrapLogger()
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	logger, loggerCleanup := common.InitializeLogger(cfg.Log)
	defer loggerCleanup()

	logger.Info("Starting balance query")

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var check mirrorCheck
	if *mirrorFlag {
		mirror, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			logger.Fatal("Failed to connect to Formance mirror", zap.Error(err))
		}
		defer mirror.Close()
		check = newMirrorCheck(mirror)
	}

	users, err := common.SelectUsers(ctx, services.DbService, *emailFlag, *roleFlag)
	if err != nil {
		logger.Fatal("Failed to select users", zap.Error(err))
	}

	common.PrintHeader("WALLET BALANCES", common.WideWidth)

	stats := balanceStats{}
	for _, user := range users {
		stats.totalUsers++
		if err := processUser(ctx, services.EscrowService, user, check, &stats); err != nil {
			stats.failedUsers++
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
		}
	}

	if *emailFlag == "" {
		platform, err := services.EscrowService.GetWallet(ctx, models.PlatformWalletId)
		if err != nil {
			logger.Error("Failed to get platform wallet", zap.Error(err))
		} else {
			fmt.Printf("\n┌─ Platform\n")
			common.PrintWallet("revenue", platform, true)
		}

		fmt.Println()
		common.PrintHeader("CONSERVATION", common.WideWidth)
		report, err := services.EscrowService.Conservation(ctx)
		if err != nil {
			logger.Error("Failed to compute conservation", zap.Error(err))
		} else {
			common.PrintConservation(report)
		}
	}

	common.PrintFooter(fmt.Sprintf("Users: %d  Funded: %d  Failed: %d  Unreconciled: %d  Mirror mismatches: %d",
		stats.totalUsers, stats.fundedUsers, stats.failedUsers, stats.reconcileFailed, stats.mirrorMismatch), common.WideWidth)
}
