package risk

import (
	"errors"
	"math"
	"sort"
	"time"
)

// ErrInsufficientData is returned when a series is too short to measure.
var ErrInsufficientData = errors.New("not enough data")

// MinVaRSamples is the shortest return series VaR is computed over.
const MinVaRSamples = 10

// RiskLevel grades a risk figure from VERY_LOW to CRITICAL.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "VERY_LOW"
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// grade maps v onto the ascending cut points low, moderate, high, critical.
func grade(v float64, cuts [4]float64) RiskLevel {
	switch {
	case v >= cuts[3]:
		return RiskCritical
	case v >= cuts[2]:
		return RiskHigh
	case v >= cuts[1]:
		return RiskModerate
	case v >= cuts[0]:
		return RiskLow
	}
	return RiskVeryLow
}

// ClassifyVaR grades a VaR expressed in percent of equity.
func ClassifyVaR(pct float64) RiskLevel { return grade(pct, [4]float64{2, 4, 7, 10}) }

// ClassifyDrawdown grades a drawdown in percent.
func ClassifyDrawdown(pct float64) RiskLevel { return grade(pct, [4]float64{5, 10, 15, 20}) }

// ClassifyScore grades a 0-100 composite score.
func ClassifyScore(score float64) RiskLevel { return grade(score, [4]float64{20, 40, 60, 80}) }

// UnderwaterPeriod is a run of points below the running peak. Indices point
// into the equity series; End is inclusive.
type UnderwaterPeriod struct {
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Duration int     `json:"duration"`
	Depth    float64 `json:"depth_pct"`
}

// DrawdownMetrics summarises an equity curve. Percentages are positive.
type DrawdownMetrics struct {
	Maximum         float64            `json:"maximum_pct"`
	Current         float64            `json:"current_pct"`
	MaxDuration     int                `json:"max_duration"`
	CurrentDuration int                `json:"current_duration"`
	AverageRecovery float64            `json:"average_recovery"`
	Frequency       float64            `json:"frequency_pct"`
	Periods         []UnderwaterPeriod `json:"underwater_periods"`
}

// Drawdowns measures equity against its running peak. Fewer than two points
// give zero metrics.
func Drawdowns(equity []float64) DrawdownMetrics {
	var m DrawdownMetrics
	if len(equity) < 2 {
		return m
	}

	peak := equity[0]
	var cur *UnderwaterPeriod
	var recoveries []int
	run := 0
	for i, v := range equity {
		peak = math.Max(peak, v)
		var dd float64
		if peak > 0 {
			dd = (peak - v) / peak * 100
		}

		if dd <= 0 {
			if cur != nil {
				cur.End = i - 1
				m.Periods = append(m.Periods, *cur)
				recoveries = append(recoveries, i-cur.Start)
				cur = nil
			}
			run = 0
			continue
		}

		run++
		m.MaxDuration = max(m.MaxDuration, run)
		m.Maximum = math.Max(m.Maximum, dd)
		if cur == nil {
			cur = &UnderwaterPeriod{Start: i}
		}
		cur.Duration++
		cur.Depth = math.Max(cur.Depth, dd)
	}
	if cur != nil {
		cur.End = len(equity) - 1
		m.Periods = append(m.Periods, *cur)
		m.CurrentDuration = run
		m.Current = (peak - equity[len(equity)-1]) / peak * 100
	}

	if len(recoveries) > 0 {
		var sum int
		for _, r := range recoveries {
			sum += r
		}
		m.AverageRecovery = float64(sum) / float64(len(recoveries))
	}
	m.Frequency = float64(len(m.Periods)) / float64(len(equity)) * 100
	return m
}

// HistoricalVaR is the loss at the (1-confidence) quantile of returns,
// reported as a positive number in the units of returns.
func HistoricalVaR(returns []float64, confidence float64) (float64, error) {
	if len(returns) < MinVaRSamples {
		return 0, ErrInsufficientData
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	idx := int((1-confidence)*float64(len(sorted))) - 1
	if idx < 0 {
		idx = 0
	}
	return math.Abs(sorted[idx]), nil
}

// ConditionalVaR is the mean loss of the returns at or beyond the VaR.
func ConditionalVaR(returns []float64, confidence float64) (float64, error) {
	v, err := HistoricalVaR(returns, confidence)
	if err != nil || v == 0 {
		return v, err
	}
	var sum float64
	var n int
	for _, r := range returns {
		if r <= -v {
			sum += r
			n++
		}
	}
	if n == 0 {
		return v, nil
	}
	return math.Abs(sum / float64(n)), nil
}

// Sharpe is the mean return over its sample standard deviation, with a zero
// risk-free rate.
func Sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	sd := math.Sqrt(ss / float64(len(returns)-1))
	if sd == 0 {
		return 0
	}
	return mean / sd
}

// RecoveryExposure is one running recovery task as the report sees it.
type RecoveryExposure struct {
	TaskID       string         `json:"task_id"`
	Method       RecoveryMethod `json:"method"`
	OriginalLoss float64        `json:"original_loss"`
	Attempts     int            `json:"attempts"`
}

// RecoveryTaskRisk is the capital a task could still put at risk.
type RecoveryTaskRisk struct {
	RecoveryExposure
	RiskAmount float64   `json:"risk_amount"`
	RiskPct    float64   `json:"risk_pct"`
	Level      RiskLevel `json:"level"`
}

// RecoveryRisk scores the running recovery tasks against equity.
type RecoveryRisk struct {
	Score              float64            `json:"score"`
	Level              RiskLevel          `json:"level"`
	AllocatedCapital   float64            `json:"allocated_capital"`
	CapitalUtilization float64            `json:"capital_utilization_pct"`
	RemainingCapacity  float64            `json:"remaining_capacity"`
	TaskRiskPct        float64            `json:"task_risk_pct"`
	MethodScore        float64            `json:"method_score"`
	Tasks              []RecoveryTaskRisk `json:"tasks"`
	Warnings           []Warning          `json:"warnings,omitempty"`
}

// RecoveryRiskAnalyzer holds the heuristic tables for recovery risk.
type RecoveryRiskAnalyzer struct {
	// BudgetPct is the share of equity recoveries may tie up, in percent.
	BudgetPct float64
	// SuccessRate is the assumed recovery success rate, in percent.
	SuccessRate float64

	MethodMultipliers map[RecoveryMethod]float64
	MethodScores      map[RecoveryMethod]float64
}

const (
	WarnRecoveryCapital  = "RECOVERY_CAPITAL"
	WarnRecoveryCapacity = "RECOVERY_CAPACITY"
)

func NewRecoveryRiskAnalyzer() RecoveryRiskAnalyzer {
	return RecoveryRiskAnalyzer{
		BudgetPct:   20,
		SuccessRate: 95,
		MethodMultipliers: map[RecoveryMethod]float64{
			MartingaleSmart:      2.0,
			GridIntelligent:      1.5,
			HedgingAdvanced:      1.2,
			AveragingIntelligent: 1.3,
			CorrelationRecovery:  1.1,
		},
		MethodScores: map[RecoveryMethod]float64{
			MartingaleSmart:      80,
			GridIntelligent:      50,
			HedgingAdvanced:      30,
			AveragingIntelligent: 40,
			CorrelationRecovery:  25,
		},
	}
}

func (a RecoveryRiskAnalyzer) successRisk() float64 {
	switch {
	case a.SuccessRate >= 95:
		return 10
	case a.SuccessRate >= 90:
		return 25
	case a.SuccessRate >= 80:
		return 50
	}
	return 80
}

// Analyze scores tasks against equity. Each attempt adds 20% to a task's
// risk.
func (a RecoveryRiskAnalyzer) Analyze(tasks []RecoveryExposure, equity float64) RecoveryRisk {
	r := RecoveryRisk{Level: RiskVeryLow, Tasks: []RecoveryTaskRisk{}}
	budget := equity * a.BudgetPct / 100
	r.RemainingCapacity = budget
	if len(tasks) == 0 {
		return r
	}

	pct := func(v float64) float64 {
		if equity <= 0 {
			return 0
		}
		return v / equity * 100
	}

	var totalRisk, methodSum float64
	for _, t := range tasks {
		loss := math.Abs(t.OriginalLoss)
		mult, ok := a.MethodMultipliers[t.Method]
		if !ok {
			mult = 1.5
		}
		amount := loss * mult * (1 + 0.2*float64(t.Attempts))
		tr := RecoveryTaskRisk{
			RecoveryExposure: t,
			RiskAmount:       round(amount, 2),
			RiskPct:          pct(amount),
			Level:            RiskLow,
		}
		switch {
		case tr.RiskPct > 5:
			tr.Level = RiskHigh
		case tr.RiskPct > 2:
			tr.Level = RiskModerate
		}
		r.Tasks = append(r.Tasks, tr)

		totalRisk += amount
		r.AllocatedCapital += loss
		score, ok := a.MethodScores[t.Method]
		if !ok {
			score = 50
		}
		methodSum += score
	}

	r.AllocatedCapital = round(r.AllocatedCapital, 2)
	r.CapitalUtilization = pct(r.AllocatedCapital)
	r.RemainingCapacity = math.Max(0, budget-r.AllocatedCapital)
	r.TaskRiskPct = pct(totalRisk)
	r.MethodScore = methodSum / float64(len(tasks))

	capitalRisk := 0.0
	if a.BudgetPct > 0 {
		capitalRisk = math.Min(100, r.CapitalUtilization/a.BudgetPct*100)
	}
	r.Score = math.Min(100, capitalRisk*0.3+r.TaskRiskPct*0.3+a.successRisk()*0.25+r.MethodScore*0.15)
	r.Level = ClassifyScore(r.Score)

	switch {
	case r.CapitalUtilization > 18:
		r.Warnings = append(r.Warnings, Warning{Code: WarnRecoveryCapital, Msg: "recovery capital near its limit"})
	case r.CapitalUtilization > 15:
		r.Warnings = append(r.Warnings, Warning{Code: WarnRecoveryCapital, Msg: "recovery capital mostly used"})
	}
	if budget > 0 && r.RemainingCapacity/budget < 0.2 {
		r.Warnings = append(r.Warnings, Warning{Code: WarnRecoveryCapacity, Msg: "little recovery capacity left"})
	}
	return r
}

// Report is a point-in-time view of account risk.
type Report struct {
	Time          time.Time       `json:"time"`
	Equity        float64         `json:"equity"`
	Drawdown      DrawdownMetrics `json:"drawdown"`
	DrawdownLevel RiskLevel       `json:"drawdown_level"`
	Samples       int             `json:"samples"`
	VaR95         float64         `json:"var_95_pct"`
	CVaR95        float64         `json:"cvar_95_pct"`
	VaR99         float64         `json:"var_99_pct"`
	VaRLevel      RiskLevel       `json:"var_level"`
	Sharpe        float64         `json:"sharpe"`
	Recovery      RecoveryRisk    `json:"recovery"`
}

// BuildReport measures an equity curve, a return series (fractions of
// equity) and the running recoveries. VaR stays zero below MinVaRSamples
// returns.
func BuildReport(now time.Time, curve, returns []float64, tasks []RecoveryExposure) Report {
	rep := Report{
		Time:     now,
		Drawdown: Drawdowns(curve),
		Samples:  len(returns),
		Sharpe:   Sharpe(returns),
	}
	if n := len(curve); n > 0 {
		rep.Equity = curve[n-1]
	}
	rep.DrawdownLevel = ClassifyDrawdown(rep.Drawdown.Maximum)

	if v, err := HistoricalVaR(returns, 0.95); err == nil {
		rep.VaR95 = v * 100
		cv, _ := ConditionalVaR(returns, 0.95)
		rep.CVaR95 = cv * 100
		v99, _ := HistoricalVaR(returns, 0.99)
		rep.VaR99 = v99 * 100
	}
	rep.VaRLevel = ClassifyVaR(rep.VaR95)
	rep.Recovery = NewRecoveryRiskAnalyzer().Analyze(tasks, rep.Equity)
	return rep
}
