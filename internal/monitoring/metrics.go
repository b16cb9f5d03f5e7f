// Package monitoring exposes bot activity as prometheus metrics.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladderbot/internal/domain"
)

var phases = []domain.Phase{
	domain.PhaseIdle,
	domain.PhaseBaseOrderPlaced,
	domain.PhaseSafetyOrdersActive,
	domain.PhaseProtectivelyHedged,
	domain.PhaseStopped,
}

// Metrics holds the bot collectors registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	commands      *prometheus.CounterVec
	price         *prometheus.GaugeVec
	position      *prometheus.GaugeVec
	takeProfit    *prometheus.GaugeVec
	stopLoss      *prometheus.GaugeVec
	rungsLeft     *prometheus.GaugeVec
	phase         *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them together with the
// go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ladderbot_cycles_total",
			Help: "Strategy cycles run",
		}, []string{"pair"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ladderbot_cycle_duration_seconds",
			Help:    "Duration of one strategy cycle",
			Buckets: prometheus.DefBuckets,
		}, []string{"pair"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ladderbot_cycle_errors_total",
			Help: "Cycles that ended with an error, by kind",
		}, []string{"pair", "kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ladderbot_order_commands_total",
			Help: "Order commands issued to the exchange",
		}, []string{"pair", "kind", "role", "result"}),
		price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ladderbot_last_price",
			Help: "Last observed market price",
		}, []string{"pair"}),
		position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ladderbot_position_size",
			Help: "Base currency held by the current deal",
		}, []string{"pair"}),
		takeProfit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ladderbot_take_profit_price",
			Help: "Current take-profit level, 0 when not armed",
		}, []string{"pair"}),
		stopLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ladderbot_stop_loss_price",
			Help: "Current stop-loss level, 0 when not armed",
		}, []string{"pair"}),
		rungsLeft: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ladderbot_safety_orders_remaining",
			Help: "Safety rungs not yet filled",
		}, []string{"pair"}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ladderbot_phase",
			Help: "1 for the phase the strategy is in, 0 otherwise",
		}, []string{"pair", "phase"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cycles, m.cycleDuration, m.errorsTotal, m.commands,
		m.price, m.position, m.takeProfit, m.stopLoss, m.rungsLeft, m.phase,
	)

	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycle records the outcome of one strategy cycle.
func (m *Metrics) ObserveCycle(s domain.StatusSnapshot, commands []domain.Command, err error, took time.Duration) {
	m.cycles.WithLabelValues(s.Pair).Inc()
	m.cycleDuration.WithLabelValues(s.Pair).Observe(took.Seconds())
	if err != nil {
		m.errorsTotal.WithLabelValues(s.Pair, ErrorKind(err)).Inc()
	}

	for _, c := range commands {
		result := "ok"
		if !c.Succeeded() {
			result = "failed"
		}
		m.commands.WithLabelValues(s.Pair, string(c.Kind), string(c.Role), result).Inc()
	}

	m.price.WithLabelValues(s.Pair).Set(s.LastPrice.InexactFloat64())
	m.position.WithLabelValues(s.Pair).Set(s.PositionSize.InexactFloat64())
	m.takeProfit.WithLabelValues(s.Pair).Set(levelOf(s.TakeProfitPrice))
	m.stopLoss.WithLabelValues(s.Pair).Set(levelOf(s.StopLossPrice))
	m.rungsLeft.WithLabelValues(s.Pair).Set(float64(len(s.RemainingLadder)))

	for _, p := range phases {
		v := 0.0
		if p == s.Phase {
			v = 1
		}
		m.phase.WithLabelValues(s.Pair, string(p)).Set(v)
	}
}

// ErrorKind names the error class used as a metric label.
func ErrorKind(err error) string {
	switch {
	case domain.IsFatal(err):
		return "fatal"
	case domain.IsTransient(err):
		return "transient"
	default:
		return "other"
	}
}

func levelOf(p *decimal.Decimal) float64 {
	if p == nil {
		return 0
	}
	return p.InexactFloat64()
}
