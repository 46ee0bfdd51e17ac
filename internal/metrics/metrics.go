// Package metrics exposes Prometheus collectors for previews, trades and
// token funding state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/swapkit/internal/domain"
)

// Collectors groups the service's metrics. A nil *Collectors is valid and
// records nothing.
type Collectors struct {
	previews        *prometheus.CounterVec
	previewDuration prometheus.Histogram
	adjustments     prometheus.Counter
	trades          *prometheus.CounterVec
	collected       *prometheus.GaugeVec
	supply          *prometheus.GaugeVec
	tokensByStatus  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		previews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapkit",
			Name:      "previews_total",
			Help:      "Preview computations by outcome.",
		}, []string{"outcome"}),
		previewDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "swapkit",
			Name:      "preview_duration_seconds",
			Help:      "Time from amount change to applied or failed preview.",
			Buckets:   prometheus.DefBuckets,
		}),
		adjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swapkit",
			Name:      "preview_adjustments_total",
			Help:      "Sell previews whose input was clamped to the consumed amount.",
		}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapkit",
			Name:      "trades_total",
			Help:      "Submitted trades by direction and outcome.",
		}, []string{"direction", "outcome"}),
		collected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "swapkit",
			Name:      "token_collected_primary",
			Help:      "Primary coin collected by each token's bonding pool, in whole coins.",
		}, []string{"symbol"}),
		supply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "swapkit",
			Name:      "token_total_supply",
			Help:      "Token supply sold by the bonding pool, in whole tokens.",
		}, []string{"symbol"}),
		tokensByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "swapkit",
			Name:      "tokens",
			Help:      "Registered tokens by lifecycle status.",
		}, []string{"status"}),
	}
	reg.MustRegister(c.previews, c.previewDuration, c.adjustments, c.trades, c.collected, c.supply, c.tokensByStatus)
	return c
}

// PreviewFinished records one preview outcome. Superseded previews are
// counted but not timed.
func (c *Collectors) PreviewFinished(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.previews.WithLabelValues(outcome).Inc()
	if outcome != "superseded" {
		c.previewDuration.Observe(elapsed.Seconds())
	}
}

// PreviewAdjusted records a clamped sell preview.
func (c *Collectors) PreviewAdjusted() {
	if c == nil {
		return
	}
	c.adjustments.Inc()
}

// TradeFinished records one trade submission.
func (c *Collectors) TradeFinished(dir domain.Direction, outcome string) {
	if c == nil {
		return
	}
	c.trades.WithLabelValues(string(dir), outcome).Inc()
}

// ObserveTokens replaces the funding gauges with the given registry snapshot.
func (c *Collectors) ObserveTokens(tokens []domain.Token) {
	if c == nil {
		return
	}
	c.tokensByStatus.Reset()
	for _, t := range tokens {
		status := t.Status
		if status == "" {
			status = domain.TokenStatusFunding
		}
		c.tokensByStatus.WithLabelValues(string(status)).Inc()

		decimals := t.Decimals
		if decimals == 0 {
			decimals = domain.PrimaryDecimals
		}
		if t.CollectedSUI != nil {
			v, _ := decimal.NewFromBigInt(t.CollectedSUI, -domain.PrimaryDecimals).Float64()
			c.collected.WithLabelValues(t.Symbol).Set(v)
		}
		if t.TotalSupply != nil {
			v, _ := decimal.NewFromBigInt(t.TotalSupply, -decimals).Float64()
			c.supply.WithLabelValues(t.Symbol).Set(v)
		}
	}
}
