package main

import (
	"context"
	"flag"
	"fmt"

	"marketplace-escrow-go/internal/common"
	"marketplace-escrow-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	settingsFlag := flag.String("settings", "", "Path to the settings seed (default: SETTINGS_FILE or settings.yaml)")
	forceFlag := flag.Bool("force", false, "Replace settings that are already stored")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		common.BootstrapLogger()
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Log)
	defer loggerCleanup()

	settingsFile := cfg.Server.SettingsFile
	if *settingsFlag != "" {
		settingsFile = *settingsFlag
	}

	// Opening the database creates the schema and the platform wallet.
	zap.L().Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	written, err := common.SeedSettings(ctx, services.EscrowService, settingsFile, *forceFlag)
	if err != nil {
		zap.L().Fatal("Failed to seed settings", zap.String("file", settingsFile), zap.Error(err))
	}

	settings, err := services.EscrowService.GetSettings(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read settings back", zap.Error(err))
	}

	common.PrintHeader("MARKETPLACE SETTINGS", common.DefaultWidth)
	if written {
		fmt.Printf("Source:            %s\n", settingsFile)
	} else {
		fmt.Println("Source:            existing (use --force to replace)")
	}
	fmt.Printf("Commission rate:   %s\n", settings.PlatformCommissionRate)
	fmt.Printf("Platform fee:      %s EUR\n", settings.PlatformFee)
	fmt.Printf("Welcome bonus:     %s EUR\n", settings.Rewards.WelcomeBonusAmount)
	fmt.Printf("Profile bonus:     %d points\n", settings.Rewards.ProfileCompletionBonus)
	fmt.Printf("First sale bonus:  %d points\n", settings.Rewards.FirstSaleBonus)
	fmt.Printf("Withdrawals:       %s - %s EUR\n", settings.WithdrawalMinAmount, settings.WithdrawalMaxAmount)
	common.PrintFooter("Setup complete", common.DefaultWidth)
}
