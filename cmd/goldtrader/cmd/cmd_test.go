package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/goldtrader/config"
	"github.com/rustyeddy/goldtrader/risk"
)

// The commands share package-level flag state, so these tests run serially.

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	c := config.Default()
	c.Journal.Type = "none"
	c.Log.Level = "error"
	c.Refresh.LedgerFile = filepath.Join(dir, "ledger.json")
	path := filepath.Join(dir, "goldtrader.yaml")
	require.NoError(t, c.SaveToFile(path))
	return path
}

func TestDayBounds(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)

	start, end, err := dayBounds(loc, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC), start.UTC())
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = dayBounds(loc, "02/03/2026")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "goldtrader version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")
	noEnv := filepath.Join(dir, "none.env")

	out, err := run(t, "config", "init", "-o", path, "--env-file", noEnv)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = run(t, "config", "validate", "-f", path, "--env-file", noEnv)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
}

func TestSizeJSON(t *testing.T) {
	path := writeTestConfig(t)
	noEnv := filepath.Join(t.TempDir(), "none.env")

	out, err := run(t, "size", "--config", path, "--env-file", noEnv, "--json",
		"--entry", "TREND_FOLLOWING", "--trend", "STRONG", "--state", "TRENDING", "--atr", "12")
	require.NoError(t, err)

	var res risk.SizingResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, risk.EntryTrendFollowing, res.EntryStrategy)
	assert.False(t, res.Fallback)
	assert.GreaterOrEqual(t, res.RecommendedLotSize, 0.01)
	assert.LessOrEqual(t, res.RecommendedLotSize, 10.0)
}

func TestSizeRejectsUnknownEntry(t *testing.T) {
	path := writeTestConfig(t)
	_, err := run(t, "size", "--config", path, "--env-file", filepath.Join(t.TempDir(), "x.env"),
		"--entry", "HOPE", "--json=false")
	assert.Error(t, err)
	sizeEntry = string(risk.EntryAutoSelect)
}

func TestJournalShowRejectsBadID(t *testing.T) {
	path := writeTestConfig(t)
	_, err := run(t, "journal", "show", "not-a-ulid", "--config", path,
		"--env-file", filepath.Join(t.TempDir(), "x.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad id")
}
