package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/goldtrader/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "USD", cfg.Account.Currency)
	assert.Equal(t, 10000.0, cfg.Account.Balance)
	assert.Equal(t, "XAUUSD", cfg.Instrument.Symbol)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"missing currency", func(c *Config) { c.Account.Currency = "" }, "account.currency is required"},
		{"negative balance", func(c *Config) { c.Account.Balance = -1 }, "account.balance must be positive"},
		{"unknown instrument", func(c *Config) { c.Instrument.Symbol = "EURUSD" }, "instrument.symbol"},
		{"bad strategy", func(c *Config) { c.Sizing.DefaultStrategy = "YOLO" }, "sizing.default_strategy"},
		{"risk above one", func(c *Config) { c.Sizing.MaxRiskPerTrade = 1.5 }, "sizing.max_risk_per_trade"},
		{"volume range", func(c *Config) { c.Sizing.DailyVolumeMax = 10 }, "sizing.daily_volume_min"},
		{"min lot below floor", func(c *Config) { c.Sizing.MinLot = 0.001 }, "sizing.min_lot must be at least 0.01"},
		{"max lot above ceiling", func(c *Config) { c.Sizing.MaxLot = 50 }, "sizing.max_lot must not exceed 10.0"},
		{"max below min", func(c *Config) { c.Sizing.MaxLot = 0.005 }, "sizing.min_lot"},
		{"fixed lot above max", func(c *Config) { c.Sizing.FixedLot = 20 }, "sizing.fixed_lot"},
		{"suggested above max", func(c *Config) { c.Sizing.MaxSuggestedLot = 11 }, "sizing.max_suggested_lot"},
		{"zero volatility budget", func(c *Config) { c.Sizing.VolatilityBudget = 0 }, "sizing.volatility_budget"},
		{"zero atr reference", func(c *Config) { c.Sizing.ATRReference = 0 }, "sizing.atr_reference"},
		{"volume share above one", func(c *Config) { c.Sizing.VolumeTargetShare = 1.5 }, "sizing.volume_target_share"},
		{"bad timezone", func(c *Config) { c.Sessions.Timezone = "Nowhere/Land" }, "sessions.timezone"},
		{"bad interval", func(c *Config) { c.Refresh.Interval = "soon" }, "refresh.interval"},
		{"ema order", func(c *Config) { c.Market.SlowEMA = 5 }, "market.slow_ema"},
		{"journal type", func(c *Config) { c.Journal.Type = "postgres" }, "journal.type"},
		{"journal path", func(c *Config) { c.Journal.Path = "" }, "journal.path"},
		{"server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateCollectsAll(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Account.Currency = ""
	cfg.Account.Balance = 0
	cfg.Server.Addr = ""

	assert.Len(t, Errors(cfg.Validate()), 3)
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"config.yaml", "config.json"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), name)
			cfg := Default()
			cfg.Account.Balance = 25000
			cfg.Sizing.DefaultStrategy = string(risk.CapitalPercentage)
			require.NoError(t, cfg.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  balance: 5000\n  currency: USD\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, cfg.Account.Balance)
	assert.Equal(t, "30s", cfg.Refresh.Interval)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: [unclosed"), 0o644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  balance: -5\n"), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "invalid config")
}

// Not parallel: mutates the process environment.
func TestApplyEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GOLDTRADER_LOG_LEVEL=debug\nGOLDTRADER_ACCOUNT_BALANCE=42000\n"), 0o644))
	t.Setenv("GOLDTRADER_SERVER_ADDR", ":9999")
	t.Setenv("GOLDTRADER_LOG_CONSOLE", "false")
	t.Cleanup(func() {
		os.Unsetenv("GOLDTRADER_LOG_LEVEL")
		os.Unsetenv("GOLDTRADER_ACCOUNT_BALANCE")
	})

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envFile))
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 42000.0, cfg.Account.Balance)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.False(t, cfg.Log.Console)

	// A missing file is not an error.
	require.NoError(t, Default().ApplyEnv(filepath.Join(t.TempDir(), "nope.env")))

	t.Setenv("GOLDTRADER_MAX_DAILY_RISK", "lots")
	assert.Error(t, Default().ApplyEnv(""))
}

func TestConversions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Refresh.Interval = "15s"
	cfg.Instrument.Price = 2400

	pol := cfg.Policy()
	assert.Equal(t, risk.MarketConditionsS, pol.DefaultStrategy)
	assert.Equal(t, risk.DefaultPolicy(), pol)

	p := cfg.Parameters()
	assert.Equal(t, 75.0, p.DailyVolumeTarget)
	// 100 oz * 2400 * 0.5%
	assert.InDelta(t, 1200, p.MarginPerLot, 1e-9)
	require.NoError(t, p.Validate())

	cfg.Instrument.MarginPerLot = 1000
	assert.Equal(t, 1000.0, cfg.Parameters().MarginPerLot)

	rc := cfg.RefreshSettings()
	assert.Equal(t, 15*time.Second, rc.Interval)
	assert.Equal(t, time.Minute, rc.RetryInterval)
	assert.Equal(t, 50.0, rc.DailyVolumeMin)

	ac := cfg.Analysis()
	assert.Equal(t, 14, ac.ATRPeriod)
	assert.Equal(t, 50, ac.SlowEMA)
}
