package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"
	"marketplace-escrow-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) GetSettings(ctx context.Context) (*models.Settings, error) {
	return loadSettings(ctx, s.db)
}

func (t *sqlTx) GetSettings(ctx context.Context) (*models.Settings, error) {
	return loadSettings(ctx, t.tx)
}

// SaveSettings replaces the settings singleton. Callers validate first.
func (s *Service) SaveSettings(ctx context.Context, settings *models.Settings) error {
	callRates := settings.CallRates
	if callRates == nil {
		callRates = map[string]int64{}
	}
	callRatesJson, err := json.Marshal(callRates)
	if err != nil {
		return fmt.Errorf("failed to encode call rates: %w", err)
	}

	now := s.nowFn()
	_, err = s.db.ExecContext(ctx, queryUpsertSettings,
		settings.PlatformCommissionRate.String(), settings.PlatformFee,
		settings.Rewards.ProfileCompletionBonus, settings.Rewards.FirstSaleBonus,
		settings.Rewards.WelcomeBonusAmount, string(callRatesJson),
		settings.WithdrawalMinAmount, settings.WithdrawalMaxAmount, now)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	settings.UpdatedAt = now
	zap.L().Info("Settings saved",
		zap.String("commission_rate", settings.PlatformCommissionRate.String()),
		zap.Int64("platform_fee", settings.PlatformFee))
	return nil
}

func loadSettings(ctx context.Context, q queryer) (*models.Settings, error) {
	var settings models.Settings
	var rate, callRates string
	var updatedAt time.Time

	err := q.QueryRowContext(ctx, queryGetSettings).Scan(
		&rate, &settings.PlatformFee, &settings.Rewards.ProfileCompletionBonus,
		&settings.Rewards.FirstSaleBonus, &settings.Rewards.WelcomeBonusAmount, &callRates,
		&settings.WithdrawalMinAmount, &settings.WithdrawalMaxAmount, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: marketplace settings have not been initialized", store.ErrConfiguration)
		}
		return nil, fmt.Errorf("unable to query settings: %w", err)
	}

	settings.PlatformCommissionRate, err = decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("%w: stored commission rate %q is not a number", store.ErrConfiguration, rate)
	}
	if err := money.ValidateRate(settings.PlatformCommissionRate); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrConfiguration, err)
	}
	if err := json.Unmarshal([]byte(callRates), &settings.CallRates); err != nil {
		return nil, fmt.Errorf("%w: stored call rates are malformed", store.ErrConfiguration)
	}
	settings.UpdatedAt = updatedAt
	return &settings, nil
}
