package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"marketplace-escrow-go/internal/api"
	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/store"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// LoadSettingsFile reads a marketplace settings seed. Relative paths are
// resolved against the working directory. The result is validated.
func LoadSettingsFile(settingsFile string) (*models.SettingsRequest, error) {
	var settingsPath string
	if filepath.IsAbs(settingsFile) {
		settingsPath = settingsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		settingsPath = filepath.Join(wd, settingsFile)
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", settingsFile, err)
	}

	var req models.SettingsRequest
	if err := yaml.UnmarshalStrict(data, &req); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", settingsFile, err)
	}

	if _, err := api.ValidateSettings(&req); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", settingsFile, err)
	}
	return &req, nil
}

// SeedSettings writes the settings file into the store. Existing settings
// are kept unless overwrite is set. It reports whether anything was written.
func SeedSettings(ctx context.Context, svc *api.EscrowService, settingsFile string, overwrite bool) (bool, error) {
	if !overwrite {
		_, err := svc.GetSettings(ctx)
		if err == nil {
			zap.L().Info("Settings already present, skipping seed", zap.String("file", settingsFile))
			return false, nil
		}
		if !errors.Is(err, store.ErrConfiguration) {
			return false, err
		}
	}

	req, err := LoadSettingsFile(settingsFile)
	if err != nil {
		return false, err
	}

	view, err := svc.UpdateSettings(ctx, req)
	if err != nil {
		return false, fmt.Errorf("unable to save settings: %w", err)
	}

	zap.L().Info("Settings seeded",
		zap.String("file", settingsFile),
		zap.String("commission_rate", view.PlatformCommissionRate),
		zap.String("platform_fee", view.PlatformFee))
	return true, nil
}
