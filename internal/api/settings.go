package api

import (
	"context"
	"fmt"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"
	"marketplace-escrow-go/internal/store"

	"go.uber.org/zap"
)

// ValidateSettings converts a settings request into cents and points and
// rejects anything the settlement engine could not use. Every error wraps
// store.ErrInvalidInput.
func ValidateSettings(req *models.SettingsRequest) (*models.Settings, error) {
	rate, err := money.ParseRate(req.PlatformCommissionRate)
	if err != nil {
		return nil, fmt.Errorf("%w: platformCommissionRate: %v", store.ErrInvalidInput, err)
	}

	settings := &models.Settings{
		PlatformCommissionRate: rate,
		Rewards: models.Rewards{
			ProfileCompletionBonus: req.Rewards.ProfileCompletionBonus,
			FirstSaleBonus:         req.Rewards.FirstSaleBonus,
		},
		CallRates: make(map[string]int64, len(req.CallRates)),
	}

	amounts := []struct {
		name  string
		value string
		dst   *int64
	}{
		{"platformFee", req.PlatformFee, &settings.PlatformFee},
		{"rewards.welcomeBonusAmount", req.Rewards.WelcomeBonusAmount, &settings.Rewards.WelcomeBonusAmount},
		{"withdrawalMinAmount", req.WithdrawalMinAmount, &settings.WithdrawalMinAmount},
		{"withdrawalMaxAmount", req.WithdrawalMaxAmount, &settings.WithdrawalMaxAmount},
	}
	for _, a := range amounts {
		value := a.value
		if value == "" {
			value = "0"
		}
		cents, err := money.Parse(value)
		if err != nil || cents < 0 {
			return nil, fmt.Errorf("%w: %s must be a non-negative amount, got %q", store.ErrInvalidInput, a.name, a.value)
		}
		*a.dst = cents
	}

	for key, value := range req.CallRates {
		cents, err := money.Parse(value)
		if err != nil || cents < 0 {
			return nil, fmt.Errorf("%w: callRates.%s must be a non-negative amount, got %q", store.ErrInvalidInput, key, value)
		}
		settings.CallRates[key] = cents
	}

	if settings.Rewards.ProfileCompletionBonus < 0 || settings.Rewards.FirstSaleBonus < 0 {
		return nil, fmt.Errorf("%w: reward points cannot be negative", store.ErrInvalidInput)
	}
	if settings.WithdrawalMaxAmount > 0 && settings.WithdrawalMinAmount > settings.WithdrawalMaxAmount {
		return nil, fmt.Errorf("%w: withdrawalMinAmount exceeds withdrawalMaxAmount", store.ErrInvalidInput)
	}
	return settings, nil
}

func (s *EscrowService) GetSettings(ctx context.Context) (*models.SettingsView, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return settingsView(settings), nil
}

// UpdateSettings validates and replaces the settings. Reservations created
// before the change keep their pinned fee but settle at the new rate.
func (s *EscrowService) UpdateSettings(ctx context.Context, req *models.SettingsRequest) (*models.SettingsView, error) {
	settings, err := ValidateSettings(req)
	if err != nil {
		zap.L().Warn("Settings update rejected", zap.Error(err))
		return nil, err
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}

	zap.L().Info("Settings updated",
		zap.String("commission_rate", settings.PlatformCommissionRate.String()),
		zap.String("platform_fee", money.Format(settings.PlatformFee)))
	return settingsView(settings), nil
}

func settingsView(settings *models.Settings) *models.SettingsView {
	callRates := make(map[string]string, len(settings.CallRates))
	for key, cents := range settings.CallRates {
		callRates[key] = money.Format(cents)
	}
	return &models.SettingsView{
		PlatformCommissionRate: settings.PlatformCommissionRate.String(),
		PlatformFee:            money.Format(settings.PlatformFee),
		Rewards: models.RewardsRequest{
			ProfileCompletionBonus: settings.Rewards.ProfileCompletionBonus,
			FirstSaleBonus:         settings.Rewards.FirstSaleBonus,
			WelcomeBonusAmount:     money.Format(settings.Rewards.WelcomeBonusAmount),
		},
		CallRates:           callRates,
		WithdrawalMinAmount: money.Format(settings.WithdrawalMinAmount),
		WithdrawalMaxAmount: money.Format(settings.WithdrawalMaxAmount),
		UpdatedAt:           settings.UpdatedAt,
	}
}
