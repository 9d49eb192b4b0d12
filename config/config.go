package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/goldtrader/market"
	"github.com/rustyeddy/goldtrader/market/analysis"
	"github.com/rustyeddy/goldtrader/risk"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GOLDTRADER_"

// Config is the complete goldtrader configuration.
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Instrument InstrumentConfig `json:"instrument" yaml:"instrument"`
	Sizing     SizingConfig     `json:"sizing" yaml:"sizing"`
	Sessions   SessionsConfig   `json:"sessions" yaml:"sessions"`
	Market     MarketConfig     `json:"market" yaml:"market"`
	Refresh    RefreshConfig    `json:"refresh" yaml:"refresh"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Log        LogConfig        `json:"log" yaml:"log"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}

// AccountConfig seeds the paper account.
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

type InstrumentConfig struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	// Price seeds the paper feed. MarginPerLot, when zero, is derived from it.
	Price        float64 `json:"price" yaml:"price"`
	Spread       float64 `json:"spread" yaml:"spread"`
	MarginPerLot float64 `json:"margin_per_lot" yaml:"margin_per_lot"`
}

type SizingConfig struct {
	DefaultStrategy   string  `json:"default_strategy" yaml:"default_strategy"`
	MaxRiskPerTrade   float64 `json:"max_risk_per_trade" yaml:"max_risk_per_trade"`
	MaxDailyRisk      float64 `json:"max_daily_risk" yaml:"max_daily_risk"`
	DailyVolumeMin    float64 `json:"daily_volume_min" yaml:"daily_volume_min"`
	DailyVolumeMax    float64 `json:"daily_volume_max" yaml:"daily_volume_max"`
	FixedLot          float64 `json:"fixed_lot" yaml:"fixed_lot"`
	MinLot            float64 `json:"min_lot" yaml:"min_lot"`
	MaxLot            float64 `json:"max_lot" yaml:"max_lot"`
	LotStep           float64 `json:"lot_step" yaml:"lot_step"`
	RiskPerLot        float64 `json:"risk_per_lot" yaml:"risk_per_lot"`
	VolatilityBudget  float64 `json:"volatility_budget" yaml:"volatility_budget"`
	ATRReference      float64 `json:"atr_reference" yaml:"atr_reference"`
	VolumeTargetShare float64 `json:"volume_target_share" yaml:"volume_target_share"`
	MaxSuggestedLot   float64 `json:"max_suggested_lot" yaml:"max_suggested_lot"`
}

type SessionsConfig struct {
	Timezone string `json:"timezone" yaml:"timezone"`
}

// MarketConfig drives the analyzer. CandlesFile is optional.
type MarketConfig struct {
	CandlesFile string `json:"candles_file,omitempty" yaml:"candles_file,omitempty"`
	ATRPeriod   int    `json:"atr_period" yaml:"atr_period"`
	ADXPeriod   int    `json:"adx_period" yaml:"adx_period"`
	FastEMA     int    `json:"fast_ema" yaml:"fast_ema"`
	SlowEMA     int    `json:"slow_ema" yaml:"slow_ema"`
}

type RefreshConfig struct {
	Interval      string `json:"interval" yaml:"interval"`             // e.g. "30s"
	RetryInterval string `json:"retry_interval" yaml:"retry_interval"` // e.g. "1m"
	LedgerFile    string `json:"ledger_file,omitempty" yaml:"ledger_file,omitempty"`
}

type JournalConfig struct {
	Type string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	// Path is the database file for sqlite and a directory for csv.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
	Console    bool   `json:"console" yaml:"console"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	pol := risk.DefaultPolicy()
	params := risk.DefaultParameters()
	an := analysis.DefaultConfig()
	return &Config{
		Account: AccountConfig{
			ID:       "PAPER-001",
			Currency: "USD",
			Balance:  params.AccountBalance,
		},
		Instrument: InstrumentConfig{
			Symbol: market.Gold,
			Price:  2000,
			Spread: 0.30,
		},
		Sizing: SizingConfig{
			DefaultStrategy:   string(pol.DefaultStrategy),
			MaxRiskPerTrade:   params.MaxRiskPerTrade,
			MaxDailyRisk:      params.MaxDailyRisk,
			DailyVolumeMin:    50,
			DailyVolumeMax:    100,
			FixedLot:          pol.FixedLot,
			MinLot:            pol.MinLot,
			MaxLot:            pol.MaxLot,
			LotStep:           pol.LotStep,
			RiskPerLot:        pol.RiskPerLot,
			VolatilityBudget:  pol.VolatilityBudget,
			ATRReference:      pol.ATRReference,
			VolumeTargetShare: pol.VolumeTargetShare,
			MaxSuggestedLot:   pol.MaxSuggestedLot,
		},
		Sessions: SessionsConfig{Timezone: market.DefaultTimezone},
		Market: MarketConfig{
			ATRPeriod: an.ATRPeriod,
			ADXPeriod: an.ADXPeriod,
			FastEMA:   an.FastEMA,
			SlowEMA:   an.SlowEMA,
		},
		Refresh: RefreshConfig{
			Interval:      "30s",
			RetryInterval: "1m",
		},
		Journal: JournalConfig{
			Type: "sqlite",
			Path: "./goldtrader.db",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Console:    true,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// LoadFromFile loads configuration from a file (YAML or JSON) over the
// defaults and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.Account.Currency == "" {
		add("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		add("account.balance must be positive")
	}

	if _, err := market.Lookup(c.Instrument.Symbol); err != nil {
		add("instrument.symbol: %v", err)
	}
	if c.Instrument.Price <= 0 && c.Instrument.MarginPerLot <= 0 {
		add("instrument.price or instrument.margin_per_lot must be positive")
	}
	if c.Instrument.Spread < 0 {
		add("instrument.spread must not be negative")
	}

	s := c.Sizing
	if _, err := risk.ParseSizingStrategy(s.DefaultStrategy); err != nil {
		add("sizing.default_strategy: %v", err)
	}
	if s.MaxRiskPerTrade <= 0 || s.MaxRiskPerTrade > 1 {
		add("sizing.max_risk_per_trade must be between 0 and 1")
	}
	if s.MaxDailyRisk <= 0 || s.MaxDailyRisk > 1 {
		add("sizing.max_daily_risk must be between 0 and 1")
	}
	if s.DailyVolumeMin <= 0 || s.DailyVolumeMax < s.DailyVolumeMin {
		add("sizing.daily_volume_min must be positive and not above daily_volume_max")
	}
	if s.MinLot < risk.MinLotFloor || s.MaxLot < s.MinLot {
		add("sizing.min_lot must be at least %.2f and not above max_lot", risk.MinLotFloor)
	}
	if s.MaxLot > risk.MaxLotCeiling {
		add("sizing.max_lot must not exceed %.1f", risk.MaxLotCeiling)
	}
	if s.FixedLot < s.MinLot || s.FixedLot > s.MaxLot {
		add("sizing.fixed_lot must be between min_lot and max_lot")
	}
	if s.MaxSuggestedLot <= 0 || s.MaxSuggestedLot > s.MaxLot {
		add("sizing.max_suggested_lot must be positive and not above max_lot")
	}
	if s.VolatilityBudget <= 0 {
		add("sizing.volatility_budget must be positive")
	}
	if s.ATRReference <= 0 {
		add("sizing.atr_reference must be positive")
	}
	if s.VolumeTargetShare <= 0 || s.VolumeTargetShare > 1 {
		add("sizing.volume_target_share must be in (0, 1]")
	}
	if s.LotStep <= 0 {
		add("sizing.lot_step must be positive")
	}
	if s.RiskPerLot <= 0 {
		add("sizing.risk_per_lot must be positive")
	}

	if _, err := market.NewSessionClock(c.Sessions.Timezone); err != nil {
		add("sessions.timezone: %v", err)
	}

	if c.Market.ATRPeriod <= 0 || c.Market.ADXPeriod <= 0 {
		add("market periods must be positive")
	}
	if c.Market.FastEMA <= 0 || c.Market.SlowEMA <= c.Market.FastEMA {
		add("market.slow_ema must be greater than market.fast_ema")
	}

	if d, err := time.ParseDuration(c.Refresh.Interval); err != nil || d <= 0 {
		add("refresh.interval must be a positive duration")
	}
	if c.Refresh.RetryInterval != "" {
		if d, err := time.ParseDuration(c.Refresh.RetryInterval); err != nil || d <= 0 {
			add("refresh.retry_interval must be a positive duration")
		}
	}

	switch c.Journal.Type {
	case "none", "":
	case "sqlite", "csv":
		if c.Journal.Path == "" {
			add("journal.path required for %s journal", c.Journal.Type)
		}
	default:
		add("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	if c.Server.Addr == "" {
		add("server.addr is required")
	}
	return errs
}

// Errors splits a Validate error into its parts.
func Errors(err error) []error {
	return multierr.Errors(err)
}

// ApplyEnv loads envFile (if it exists) into the environment with godotenv
// and then applies GOLDTRADER_* overrides.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var errs error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			f, err := cast.ToFloat64E(v)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := cast.ToBoolE(v)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("ACCOUNT_CURRENCY", &c.Account.Currency)
	num("ACCOUNT_BALANCE", &c.Account.Balance)
	num("INSTRUMENT_PRICE", &c.Instrument.Price)
	str("DEFAULT_STRATEGY", &c.Sizing.DefaultStrategy)
	num("MAX_RISK_PER_TRADE", &c.Sizing.MaxRiskPerTrade)
	num("MAX_DAILY_RISK", &c.Sizing.MaxDailyRisk)
	num("DAILY_VOLUME_MIN", &c.Sizing.DailyVolumeMin)
	num("DAILY_VOLUME_MAX", &c.Sizing.DailyVolumeMax)
	str("TIMEZONE", &c.Sessions.Timezone)
	str("CANDLES_FILE", &c.Market.CandlesFile)
	str("REFRESH_INTERVAL", &c.Refresh.Interval)
	str("JOURNAL_TYPE", &c.Journal.Type)
	str("JOURNAL_PATH", &c.Journal.Path)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	flag("LOG_CONSOLE", &c.Log.Console)
	str("SERVER_ADDR", &c.Server.Addr)
	return errs
}

// Policy converts the sizing section.
func (c *Config) Policy() risk.Policy {
	s := c.Sizing
	strategy, err := risk.ParseSizingStrategy(s.DefaultStrategy)
	if err != nil {
		strategy = risk.MarketConditionsS
	}
	return risk.Policy{
		DefaultStrategy:   strategy,
		FixedLot:          s.FixedLot,
		MinLot:            s.MinLot,
		MaxLot:            s.MaxLot,
		LotStep:           s.LotStep,
		RiskPerLot:        s.RiskPerLot,
		VolatilityBudget:  s.VolatilityBudget,
		ATRReference:      s.ATRReference,
		VolumeTargetShare: s.VolumeTargetShare,
		MaxSuggestedLot:   s.MaxSuggestedLot,
	}
}

// Parameters is the initial parameter snapshot before the first refresh.
func (c *Config) Parameters() risk.SizingParameters {
	p := risk.DefaultParameters()
	p.AccountBalance = c.Account.Balance
	p.AccountEquity = c.Account.Balance
	p.FreeMargin = c.Account.Balance
	p.MaxRiskPerTrade = c.Sizing.MaxRiskPerTrade
	p.MaxDailyRisk = c.Sizing.MaxDailyRisk
	p.DailyVolumeTarget = (c.Sizing.DailyVolumeMin + c.Sizing.DailyVolumeMax) / 2
	p.RemainingVolumeTarget = p.DailyVolumeTarget

	if meta, err := market.Lookup(c.Instrument.Symbol); err == nil {
		p.Symbol = c.Instrument.Symbol
		p.PointValue = meta.PointValue
		p.TickSize = meta.TickSize
		p.ContractSize = meta.ContractSize
		if c.Instrument.MarginPerLot <= 0 && c.Instrument.Price > 0 {
			p.MarginPerLot = meta.MarginPerLot(c.Instrument.Price)
		}
	}
	if c.Instrument.MarginPerLot > 0 {
		p.MarginPerLot = c.Instrument.MarginPerLot
	}
	return p
}

// RefreshSettings converts the refresh and sizing volume sections.
func (c *Config) RefreshSettings() risk.RefreshConfig {
	rc := risk.DefaultRefreshConfig()
	if d, err := time.ParseDuration(c.Refresh.Interval); err == nil && d > 0 {
		rc.Interval = d
	}
	if d, err := time.ParseDuration(c.Refresh.RetryInterval); err == nil && d > 0 {
		rc.RetryInterval = d
	}
	rc.DailyVolumeMin = c.Sizing.DailyVolumeMin
	rc.DailyVolumeMax = c.Sizing.DailyVolumeMax
	return rc
}

// Analysis converts the market section.
func (c *Config) Analysis() analysis.Config {
	ac := analysis.DefaultConfig()
	ac.ATRPeriod = c.Market.ATRPeriod
	ac.ADXPeriod = c.Market.ADXPeriod
	ac.FastEMA = c.Market.FastEMA
	ac.SlowEMA = c.Market.SlowEMA
	return ac
}
