package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "tradebot/internal/errors"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load with no config file: %v", err)
	}
	if cfg.Risk.MaxPositions != 5 || cfg.Risk.MaxPositionSizePct != 0.20 {
		t.Errorf("risk defaults = %+v", cfg.Risk)
	}
	if cfg.Backtest.InitialCapital != 100000 || cfg.Backtest.EntryThreshold != 70 {
		t.Errorf("backtest defaults = %+v", cfg.Backtest)
	}
	if cfg.Backtest.ReentryCooldown != 24*time.Hour {
		t.Errorf("reentry cooldown default = %v", cfg.Backtest.ReentryCooldown)
	}
	if cfg.Agent.Source != "rule" {
		t.Errorf("agent source default = %q", cfg.Agent.Source)
	}
	if cfg.Notifications.Enabled {
		t.Error("notifications enabled by default")
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	toml := `
[risk]
max_positions = 8
max_position_size_pct = 0.15

[backtest]
initial_capital = 250000.0
commission_rate = 0.0005

[notifications]
enabled = true

[notifications.webhook]
enabled = true
url = "https://hooks.example.com/trades"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Risk.MaxPositions != 8 || cfg.Risk.MaxPositionSizePct != 0.15 {
		t.Errorf("risk overrides not applied: %+v", cfg.Risk)
	}
	// Untouched keys keep their defaults.
	if cfg.Risk.MaxRiskPerTradePct != 0.02 {
		t.Errorf("max_risk_per_trade_pct = %v, want default 0.02", cfg.Risk.MaxRiskPerTradePct)
	}
	if cfg.Backtest.InitialCapital != 250000 || cfg.Backtest.CommissionRate != 0.0005 {
		t.Errorf("backtest overrides not applied: %+v", cfg.Backtest)
	}
	if !cfg.Notifications.Webhook.Enabled || cfg.Notifications.Webhook.URL == "" {
		t.Errorf("webhook config not applied: %+v", cfg.Notifications.Webhook)
	}
}

func TestLoadFailsClosedOnBadLimits(t *testing.T) {
	dir := t.TempDir()
	toml := `
[risk]
max_positions = 0
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("Load accepted max_positions = 0")
	} else if !apperrors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("error %v does not wrap ErrConfigInvalid", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-123")
	t.Setenv("TRADEBOT_DB_PATH", "/tmp/override.db")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Credentials.OpenAI.APIKey != "sk-test-123" {
		t.Errorf("API key override not applied: %q", cfg.Credentials.OpenAI.APIKey)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("db path override not applied: %q", cfg.Database.Path)
	}
}

func TestRiskConstraintsValidate(t *testing.T) {
	valid := RiskConstraints{
		MaxPositions:         5,
		MaxPositionSizePct:   0.20,
		MinStopLossPct:       0.01,
		MaxStopLossPct:       0.15,
		MaxRiskPerTradePct:   0.02,
		DailyLossLimitPct:    0.03,
		MaxSectorExposurePct: 0.30,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid constraints rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*RiskConstraints)
	}{
		{"zero positions", func(r *RiskConstraints) { r.MaxPositions = 0 }},
		{"oversized position cap", func(r *RiskConstraints) { r.MaxPositionSizePct = 1.1 }},
		{"inverted stop bounds", func(r *RiskConstraints) { r.MinStopLossPct = 0.20 }},
		{"zero stop bound", func(r *RiskConstraints) { r.MaxStopLossPct = 0 }},
		{"zero risk per trade", func(r *RiskConstraints) { r.MaxRiskPerTradePct = 0 }},
		{"zero daily loss limit", func(r *RiskConstraints) { r.DailyLossLimitPct = 0 }},
		{"negative sector cap", func(r *RiskConstraints) { r.MaxSectorExposurePct = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			if err := r.Validate(); err == nil {
				t.Errorf("Validate accepted %s", tt.name)
			} else if !apperrors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("error %v does not wrap ErrConfigInvalid", err)
			}
		})
	}

	// Sector cap of zero is valid and disables the check.
	r := valid
	r.MaxSectorExposurePct = 0
	if err := r.Validate(); err != nil {
		t.Errorf("sector cap 0 rejected: %v", err)
	}
}
