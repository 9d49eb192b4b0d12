package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/goldtrader/internal/metrics"
	"github.com/rustyeddy/goldtrader/journal"
	"github.com/rustyeddy/goldtrader/market"
	"github.com/rustyeddy/goldtrader/risk"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type memJournal struct {
	journal.Nop
	fills []journal.FillRecord
}

func (m *memJournal) RecordFill(f journal.FillRecord) error {
	m.fills = append(m.fills, f)
	return nil
}

type fixture struct {
	router  *gin.Engine
	journal *memJournal
	metrics *metrics.Recorder
	store   *risk.Store
}

func newFixture(t *testing.T, withLedger bool) fixture {
	t.Helper()
	return newFixtureWith(t, withLedger, nil)
}

func newFixtureWith(t *testing.T, withLedger bool, tr Trader) fixture {
	t.Helper()

	clock, err := market.NewSessionClock(market.DefaultTimezone)
	require.NoError(t, err)
	now := func() time.Time { return testNow }

	store := risk.NewStore(risk.DefaultParameters())
	rec := metrics.New()
	mem := &memJournal{}

	d := Deps{
		Journal: mem,
		Metrics: rec,
		Trader:  tr,
		Log:     zerolog.Nop(),
		Now:     now,
	}
	if withLedger {
		d.Ledger = risk.NewDailyLedger(clock, "")
		d.Refresher = risk.NewRefresher(store, risk.Sources{Ledger: d.Ledger, Clock: clock},
			risk.DefaultRefreshConfig(), zerolog.Nop())
		d.Refresher.SetClock(now)
	}
	d.Sizer = risk.NewSizer(risk.DefaultPolicy(), store,
		risk.WithClock(now),
		risk.WithSessionClock(clock),
		risk.WithObserver(rec),
	)

	srv, err := New(d)
	require.NoError(t, err)
	return fixture{router: srv.Router(), journal: mem, metrics: rec, store: store}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestNewRequiresSizer(t *testing.T) {
	t.Parallel()

	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	w := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["refresher_active"])
}

func TestSize(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	w := f.do(t, http.MethodPost, "/v1/size", map[string]any{
		"entry_strategy": "trend_following",
		"market_conditions": map[string]any{
			"trend_strength":   "STRONG",
			"market_state":     "TRENDING",
			"volatility_level": "MODERATE",
			"atr_value":        "15",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[risk.SizingResult](t, w)
	assert.Equal(t, risk.EntryTrendFollowing, res.EntryStrategy)
	assert.False(t, res.Fallback)
	assert.GreaterOrEqual(t, res.RecommendedLotSize, 0.01)
	assert.LessOrEqual(t, res.RecommendedLotSize, 10.0)
	assert.LessOrEqual(t, res.MinLotSize, res.RecommendedLotSize)
	assert.GreaterOrEqual(t, res.MaxLotSize, res.RecommendedLotSize)
}

func TestSizeWithoutConditions(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	w := f.do(t, http.MethodPost, "/v1/size", map[string]any{
		"entry_strategy":   "GRID_ENTRY",
		"recovery_context": map[string]any{"recovery_positions": 2, "recovery_method": "GRID_INTELLIGENT"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[risk.SizingResult](t, w)
	assert.Equal(t, risk.EntryGrid, res.EntryStrategy)
	assert.False(t, res.Fallback)
}

func TestSizeBadRequests(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	tests := []struct {
		name string
		body any
	}{
		{"missing entry", map[string]any{}},
		{"unknown entry", map[string]any{"entry_strategy": "YOLO"}},
		{"not json", "plain"},
	}
	for _, tt := range tests {
		w := f.do(t, http.MethodPost, "/v1/size", tt.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.name)
		assert.Contains(t, w.Body.String(), "error", tt.name)
	}
}

func TestRecoverySize(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	w := f.do(t, http.MethodPost, "/v1/size/recovery", map[string]any{
		"task_id":       "T-1",
		"method":        "MARTINGALE_SMART",
		"original_loss": 250,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[risk.SizingResult](t, w)
	assert.Equal(t, risk.EntryMeanReversion, res.EntryStrategy)

	w = f.do(t, http.MethodPost, "/v1/size/recovery", map[string]any{"task_id": "T-1", "method": "DOUBLE_DOWN"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsCountsCalculations(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	for i := 0; i < 2; i++ {
		w := f.do(t, http.MethodPost, "/v1/size", map[string]any{"entry_strategy": "SCALPING_FAST"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := f.do(t, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[risk.Stats](t, w)
	assert.Equal(t, 2, st.Calculations)
	assert.Equal(t, 0, st.Fallbacks)
	assert.Equal(t, "XAUUSD", st.Parameters.Symbol)
}

func TestParameters(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/v1/parameters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[risk.SizingParameters](t, w)
	assert.Equal(t, 10000.0, p.AccountBalance)

	p.AccountBalance = 20000
	w = f.do(t, http.MethodPut, "/v1/parameters", p)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 20000.0, decode[risk.SizingParameters](t, w).AccountBalance)

	w = f.do(t, http.MethodPut, "/v1/parameters", map[string]any{"account_balance": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "margin_per_lot")
}

func TestFills(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)

	w := f.do(t, http.MethodPost, "/v1/fills", map[string]any{"lots": 2, "risk_fraction": 0.01})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[fillResponse](t, w)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, 2.0, resp.Totals.Volume)
	assert.Equal(t, 1, resp.Totals.Trades)

	require.Len(t, f.journal.fills, 1)
	assert.Equal(t, "api", f.journal.fills[0].Source)

	// the refresh after the fill reaches the parameters
	w = f.do(t, http.MethodGet, "/v1/parameters", nil)
	p := decode[risk.SizingParameters](t, w)
	assert.Equal(t, 2.0, p.CurrentDailyVolume)
	assert.Equal(t, 73.0, p.RemainingVolumeTarget)

	w = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "goldtrader_fills_recorded_total 1"))

	w = f.do(t, http.MethodPost, "/v1/fills", map[string]any{"lots": 1, "risk_fraction": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFillsWithoutLedger(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	w := f.do(t, http.MethodPost, "/v1/fills", map[string]any{"lots": 1})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPatchParameters(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	w := f.do(t, http.MethodPatch, "/v1/parameters", map[string]any{"account_equity": 12000, "atr": 18.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode[risk.SizingParameters](t, w)
	assert.Equal(t, 12000.0, p.AccountEquity)
	assert.Equal(t, 18.5, p.ATR)
	// untouched fields keep their values
	assert.Equal(t, 10000.0, p.AccountBalance)
	assert.Equal(t, 12000.0, f.store.Get().AccountEquity)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"not json", nil, http.StatusBadRequest},
		{"invalid result", map[string]any{"margin_per_lot": 0}, http.StatusUnprocessableEntity},
		{"wrong type", map[string]any{"account_equity": "lots"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		w := f.do(t, http.MethodPatch, "/v1/parameters", tt.body)
		assert.Equal(t, tt.status, w.Code, tt.name)
	}
	assert.Equal(t, 12000.0, f.store.Get().AccountEquity)
}
