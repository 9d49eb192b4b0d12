package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/goldtrader/internal/app"
	"github.com/rustyeddy/goldtrader/market"
	"github.com/rustyeddy/goldtrader/risk"
)

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Recommend a lot size for one entry",
	Long: `Refresh parameters once and size a single entry.

Market conditions come from the flags when any is given, otherwise from the
candle file in the config, otherwise from neutral defaults.

Examples:
  goldtrader size --entry TREND_FOLLOWING --trend STRONG --state TRENDING --atr 12
  goldtrader size --entry SCALPING_FAST --entry-price 2010.5 --stop 2005.5
  goldtrader size --entry MEAN_REVERSION --recovery 2 --recovery-method GRID_INTELLIGENT`,
	RunE: runSize,
}

var (
	sizeEntry          string
	sizeTrend          string
	sizeState          string
	sizeVolatility     string
	sizeATR            float64
	sizeNearLevel      bool
	sizeRecovery       int
	sizeRecoveryMethod string
	sizeEntryPrice     float64
	sizeStop           float64
	sizeJSON           bool
	sizeExecute        bool
	sizeShort          bool
)

var conditionFlags = []string{"trend", "state", "volatility", "atr", "near-level"}

func init() {
	rootCmd.AddCommand(sizeCmd)

	f := sizeCmd.Flags()
	f.StringVarP(&sizeEntry, "entry", "e", string(risk.EntryAutoSelect), "entry strategy")
	f.StringVar(&sizeTrend, "trend", "", "trend strength (WEAK, MODERATE, STRONG)")
	f.StringVar(&sizeState, "state", "", "market state (TRENDING, RANGING, VOLATILE)")
	f.StringVar(&sizeVolatility, "volatility", "", "volatility level (VERY_LOW .. VERY_HIGH)")
	f.Float64Var(&sizeATR, "atr", 0, "ATR in price units")
	f.BoolVar(&sizeNearLevel, "near-level", false, "price is near a key level")
	f.IntVar(&sizeRecovery, "recovery", 0, "open positions in the active recovery")
	f.StringVar(&sizeRecoveryMethod, "recovery-method", "", "recovery method of the active recovery")
	f.Float64Var(&sizeEntryPrice, "entry-price", 0, "entry price for stop-based sizing")
	f.Float64Var(&sizeStop, "stop", 0, "stop price for stop-based sizing")
	f.BoolVar(&sizeJSON, "json", false, "print the result as JSON")
	f.BoolVar(&sizeExecute, "execute", false, "place the recommended size on the paper account")
	f.BoolVar(&sizeShort, "short", false, "sell instead of buy with --execute")
}

func runSize(cmd *cobra.Command, args []string) error {
	entry, err := risk.ParseEntryStrategy(sizeEntry)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.Refresher.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("parameter refresh incomplete")
	}

	var rec *risk.RecoveryContext
	if sizeRecovery > 0 || sizeRecoveryMethod != "" {
		rec = risk.ParseRecoveryContext(map[string]any{
			"recovery_positions": sizeRecovery,
			"recovery_method":    sizeRecoveryMethod,
		})
	}

	var res risk.SizingResult
	if conds, ok := conditionsFromFlags(cmd); ok {
		res = a.Sizer.Calculate(entry, risk.ParseConditions(conds), rec)
	} else {
		res = a.Sizer.CalculateAuto(ctx, entry, rec)
	}

	out := cmd.OutOrStdout()
	if err := printResult(out, res, sizeJSON); err != nil {
		return err
	}

	if sizeEntryPrice > 0 && sizeStop > 0 {
		p := a.Store.Get()
		meta, err := market.Lookup(p.Symbol)
		if err != nil {
			return err
		}
		byStop := risk.SizeForStop(risk.Inputs{
			Equity:         p.AccountEquity,
			RiskPct:        p.MaxRiskPerTrade,
			EntryPrice:     sizeEntryPrice,
			StopPrice:      sizeStop,
			QuoteToAccount: 1,
			Instrument:     meta,
		})
		fmt.Fprintf(out, "\nStop-based: %.2f lots (%.0f points, risking %.2f)\n",
			byStop.Lots, byStop.StopPoints, byStop.RiskAmount)
	}

	if sizeExecute {
		fill, err := a.Execute(ctx, res, !sizeShort, sizeStop, 0, "")
		if err != nil {
			return fmt.Errorf("execute: %w", err)
		}
		fmt.Fprintf(out, "\nFilled %s %.2f lots @ %.2f (trade %s)\n",
			fill.Instrument, fill.Lots, fill.Price, fill.TradeID)
		plan, err := a.Plan(ctx, fill)
		if err != nil {
			return fmt.Errorf("plan: %w", err)
		}
		if plan.PlannedRisk > 0 {
			fmt.Fprintf(out, "At risk: %.2f (%.2f%% of equity)\n", plan.PlannedRisk, plan.RiskPct*100)
		}
	}
	return nil
}

func conditionsFromFlags(cmd *cobra.Command) (map[string]any, bool) {
	changed := false
	for _, name := range conditionFlags {
		if cmd.Flags().Changed(name) {
			changed = true
		}
	}
	if !changed {
		return nil, false
	}
	m := map[string]any{"near_key_level": sizeNearLevel}
	if sizeTrend != "" {
		m["trend_strength"] = sizeTrend
	}
	if sizeState != "" {
		m["market_state"] = sizeState
	}
	if sizeVolatility != "" {
		m["volatility_level"] = strings.ToUpper(sizeVolatility)
	}
	if sizeATR > 0 {
		m["atr_value"] = sizeATR
	}
	return m, true
}

func printResult(w io.Writer, res risk.SizingResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(w, "Entry:        %s\n", res.EntryStrategy)
	fmt.Fprintf(w, "Method:       %s\n", res.Method)
	fmt.Fprintf(w, "Lots:         %.2f  (min %.2f, max %.2f)\n", res.RecommendedLotSize, res.MinLotSize, res.MaxLotSize)
	fmt.Fprintf(w, "Risk:         %.2f\n", res.RiskAmount)
	fmt.Fprintf(w, "Margin:       %.2f\n", res.MarginRequired)
	fmt.Fprintf(w, "Confidence:   %.0f\n", res.ConfidenceScore)
	fmt.Fprintf(w, "Impact:       %s\n", res.MarketImpact)
	fmt.Fprintf(w, "Reasoning:    %s\n", res.Reasoning)
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  ! %s: %s\n", warn.Code, warn.Msg)
	}
	if res.Fallback {
		fmt.Fprintln(w, "  ! fallback result")
	}
	return nil
}
