package common

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}
	return path
}

func TestLoadSettingsFile(t *testing.T) {
	path := writeSettings(t, `
platform_commission_rate: "0.20"
platform_fee: "20.00"
rewards:
  profile_completion_bonus: 50
  first_sale_bonus: 25
  welcome_bonus_amount: "5.00"
call_rates:
  voice: "2.50"
withdrawal_min_amount: "10.00"
`)

	req, err := LoadSettingsFile(path)
	if err != nil {
		t.Fatalf("LoadSettingsFile failed: %v", err)
	}
	if req.PlatformCommissionRate != "0.20" {
		t.Errorf("commission rate = %q, want 0.20", req.PlatformCommissionRate)
	}
	if req.Rewards.FirstSaleBonus != 25 {
		t.Errorf("first sale bonus = %d, want 25", req.Rewards.FirstSaleBonus)
	}
	if req.CallRates["voice"] != "2.50" {
		t.Errorf("voice rate = %q, want 2.50", req.CallRates["voice"])
	}
}

func TestLoadSettingsFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"rate above one", "platform_commission_rate: \"1.5\"\nplatform_fee: \"0\"\n", "invalid settings"},
		{"negative fee", "platform_commission_rate: \"0.1\"\nplatform_fee: \"-1\"\n", "invalid settings"},
		{"unknown key", "platform_commission_rate: \"0.1\"\ncommission: \"0.2\"\n", "unable to parse"},
		{"not yaml", "::::", "unable to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSettingsFile(writeSettings(t, tt.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	if _, err := LoadSettingsFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
