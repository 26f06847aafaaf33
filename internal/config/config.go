// Package config provides configuration management for the trading engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "tradebot/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Risk          RiskConstraints    `mapstructure:"risk"`
	Backtest      BacktestDefaults   `mapstructure:"backtest"`
	Agent         AgentConfig        `mapstructure:"agent"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// RiskConstraints holds the configured risk limits consulted by the risk
// guard. All *Pct fields are fractions: 0.05 means 5%. The engine must not
// run with undefined limits; Validate fails closed.
type RiskConstraints struct {
	MaxPositions         int     `mapstructure:"max_positions"`
	MaxPositionSizePct   float64 `mapstructure:"max_position_size_pct"`
	MinStopLossPct       float64 `mapstructure:"min_stop_loss_pct"`
	MaxStopLossPct       float64 `mapstructure:"max_stop_loss_pct"`
	MaxRiskPerTradePct   float64 `mapstructure:"max_risk_per_trade_pct"`
	DailyLossLimitPct    float64 `mapstructure:"daily_loss_limit_pct"`
	MaxSectorExposurePct float64 `mapstructure:"max_sector_exposure_pct"` // 0 disables the sector check
}

// BacktestDefaults holds default parameters for simulation runs.
type BacktestDefaults struct {
	InitialCapital  float64       `mapstructure:"initial_capital"`
	CommissionRate  float64       `mapstructure:"commission_rate"` // fraction per fill
	EntryThreshold  float64       `mapstructure:"entry_threshold"` // minimum entry score
	StopLossPct     float64       `mapstructure:"stop_loss_pct"`
	TakeProfitPct   float64       `mapstructure:"take_profit_pct"`
	TrailingStop    bool          `mapstructure:"trailing_stop"`
	TrailingStopPct float64       `mapstructure:"trailing_stop_pct"`
	ReentryCooldown time.Duration `mapstructure:"reentry_cooldown"`
	PeriodsPerYear  float64       `mapstructure:"periods_per_year"`
}

// AgentConfig holds decision-source configuration.
type AgentConfig struct {
	Source                   string  `mapstructure:"source"` // "rule", "llm"
	Model                    string  `mapstructure:"model"`
	EntryThreshold           float64 `mapstructure:"entry_threshold"`
	SuggestedStopLossPct     float64 `mapstructure:"suggested_stop_loss_pct"`
	SuggestedPositionSizePct float64 `mapstructure:"suggested_position_size_pct"`
	SuggestedTakeProfitPct   float64 `mapstructure:"suggested_take_profit_pct"`
}

// NotificationConfig holds lifecycle event notification configuration.
type NotificationConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds data-store configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradebot"
	}
	return filepath.Join(home, ".config", "tradebot")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Missing file is fine: defaults apply, Validate decides viability.
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("risk.max_positions", 5)
	v.SetDefault("risk.max_position_size_pct", 0.20)
	v.SetDefault("risk.min_stop_loss_pct", 0.01)
	v.SetDefault("risk.max_stop_loss_pct", 0.15)
	v.SetDefault("risk.max_risk_per_trade_pct", 0.02)
	v.SetDefault("risk.daily_loss_limit_pct", 0.03)
	v.SetDefault("risk.max_sector_exposure_pct", 0.30)

	v.SetDefault("backtest.initial_capital", 100000.0)
	v.SetDefault("backtest.commission_rate", 0.001)
	v.SetDefault("backtest.entry_threshold", 70.0)
	v.SetDefault("backtest.stop_loss_pct", 0.05)
	v.SetDefault("backtest.take_profit_pct", 0.0)
	v.SetDefault("backtest.trailing_stop", false)
	v.SetDefault("backtest.trailing_stop_pct", 0.03)
	v.SetDefault("backtest.reentry_cooldown", 24*time.Hour)
	v.SetDefault("backtest.periods_per_year", 252.0)

	v.SetDefault("agent.source", "rule")
	v.SetDefault("agent.model", "gpt-4o-mini")
	v.SetDefault("agent.entry_threshold", 70.0)
	v.SetDefault("agent.suggested_stop_loss_pct", 0.05)
	v.SetDefault("agent.suggested_position_size_pct", 0.10)
	v.SetDefault("agent.suggested_take_profit_pct", 0.0)

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.webhook.timeout", 5*time.Second)

	v.SetDefault("database.path", filepath.Join(DefaultConfigDir(), "tradebot.db"))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("TRADEBOT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

// Validate checks that the configuration is usable. Risk limits fail
// closed: the engine refuses to run with missing or nonsensical limits.
func (c *Config) Validate() error {
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("%w: backtest.initial_capital must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Backtest.CommissionRate < 0 {
		return fmt.Errorf("%w: backtest.commission_rate cannot be negative", apperrors.ErrConfigInvalid)
	}
	return nil
}

// Validate checks the risk constraints, failing closed on undefined limits.
func (r *RiskConstraints) Validate() error {
	if r.MaxPositions <= 0 {
		return fmt.Errorf("%w: risk.max_positions must be positive", apperrors.ErrConfigInvalid)
	}
	if r.MaxPositionSizePct <= 0 || r.MaxPositionSizePct > 1 {
		return fmt.Errorf("%w: risk.max_position_size_pct must be in (0,1]", apperrors.ErrConfigInvalid)
	}
	if r.MinStopLossPct <= 0 || r.MaxStopLossPct <= 0 || r.MinStopLossPct > r.MaxStopLossPct {
		return fmt.Errorf("%w: risk stop-loss bounds must satisfy 0 < min <= max", apperrors.ErrConfigInvalid)
	}
	if r.MaxRiskPerTradePct <= 0 {
		return fmt.Errorf("%w: risk.max_risk_per_trade_pct must be positive", apperrors.ErrConfigInvalid)
	}
	if r.DailyLossLimitPct <= 0 {
		return fmt.Errorf("%w: risk.daily_loss_limit_pct must be positive", apperrors.ErrConfigInvalid)
	}
	if r.MaxSectorExposurePct < 0 || r.MaxSectorExposurePct > 1 {
		return fmt.Errorf("%w: risk.max_sector_exposure_pct must be in [0,1]", apperrors.ErrConfigInvalid)
	}
	return nil
}
