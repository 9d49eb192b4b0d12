// Package metrics exposes sizing and refresh activity as Prometheus
// collectors. A Recorder satisfies risk.Observer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rustyeddy/goldtrader/risk"
)

const namespace = "goldtrader"

type Recorder struct {
	reg *prometheus.Registry

	calculations  *prometheus.CounterVec
	fallbacks     prometheus.Counter
	warnings      *prometheus.CounterVec
	lots          prometheus.Histogram
	confidence    prometheus.Gauge
	refreshErrors prometheus.Counter
	fills         prometheus.Counter
	dailyVolume   prometheus.Gauge
	drawdown      prometheus.Gauge
	var95         prometheus.Gauge
	recoveryScore prometheus.Gauge
}

// New registers the collectors on a private registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sizing_calculations_total",
			Help: "Sizing results by sizing method",
		}, []string{"method"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sizing_fallbacks_total",
			Help: "Sizing calls answered with the fallback result",
		}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sizing_warnings_total",
			Help: "Limit warnings attached to results",
		}, []string{"code"}),
		lots: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "sizing_recommended_lots",
			Help:    "Recommended lot size",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		confidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sizing_last_confidence",
			Help: "Confidence score of the latest result",
		}),
		refreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "parameter_refresh_errors_total",
			Help: "Failed parameter refreshes",
		}),
		fills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fills_recorded_total",
			Help: "Fills reported to the daily ledger",
		}),
		dailyVolume: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "daily_volume_lots",
			Help: "Lots traded so far in the session day",
		}),
		drawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "risk_drawdown_percent",
			Help: "Current drawdown from the equity peak",
		}),
		var95: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "risk_var95_percent",
			Help: "Historical 95% value at risk per trade",
		}),
		recoveryScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "risk_recovery_score",
			Help: "Recovery risk score from 0 to 100",
		}),
	}
	r.reg.MustRegister(
		r.calculations, r.fallbacks, r.warnings, r.lots,
		r.confidence, r.refreshErrors, r.fills, r.dailyVolume,
		r.drawdown, r.var95, r.recoveryScore,
	)
	return r
}

func (r *Recorder) SizingCalculated(res risk.SizingResult) {
	r.calculations.WithLabelValues(string(res.Method)).Inc()
	if res.Fallback {
		r.fallbacks.Inc()
	}
	for _, w := range res.Warnings {
		r.warnings.WithLabelValues(w.Code).Inc()
	}
	r.lots.Observe(res.RecommendedLotSize)
	r.confidence.Set(res.ConfidenceScore)
}

func (r *Recorder) RefreshFailed(error) {
	r.refreshErrors.Inc()
}

// FillRecorded counts a fill and publishes the day's running volume.
func (r *Recorder) FillRecorded(dayVolume float64) {
	r.fills.Inc()
	r.dailyVolume.Set(dayVolume)
}

// RiskReported publishes the headline figures of a risk report.
func (r *Recorder) RiskReported(rep risk.Report) {
	r.drawdown.Set(rep.Drawdown.Current)
	r.var95.Set(rep.VaR95)
	r.recoveryScore.Set(rep.Recovery.Score)
}

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
