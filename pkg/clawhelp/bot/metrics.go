package bot

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Reasons a message is not dispatched.
const (
	ReasonNoCommand  = "no_command"
	ReasonUnknown    = "unknown_command"
	ReasonParseError = "parse_error"
)

// Metrics holds Prometheus metrics for the dispatcher.
type Metrics struct {
	CommandsTotal   *prometheus.CounterVec   // by command and result
	CommandDuration *prometheus.HistogramVec // by command
	IgnoredTotal    *prometheus.CounterVec   // by reason
	InFlight        prometheus.Gauge
}

// NewMetrics creates the dispatcher metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clawhelp_commands_total",
			Help: "Commands executed, by command name and result",
		}, []string{"command", "result"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clawhelp_command_duration_seconds",
			Help:    "Command execution time",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		IgnoredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clawhelp_messages_ignored_total",
			Help: "Inbound messages that did not run a command, by reason",
		}, []string{"reason"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clawhelp_commands_in_flight",
			Help: "Commands currently executing",
		}),
	}

	reg.MustRegister(m.CommandsTotal, m.CommandDuration, m.IgnoredTotal, m.InFlight)
	return m
}

func (m *Metrics) ignored(reason string) {
	if m != nil {
		m.IgnoredTotal.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) started() {
	if m != nil {
		m.InFlight.Inc()
	}
}

func (m *Metrics) finished(command string, seconds float64, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.InFlight.Dec()
	m.CommandsTotal.WithLabelValues(command, result).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(seconds)
}
