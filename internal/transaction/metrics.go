// internal/transaction/metrics.go
package transaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks submission outcomes. A nil *Metrics records nothing.
type Metrics struct {
	outcomes          *prometheus.CounterVec
	sendRetries       prometheus.Counter
	polls             prometheus.Counter
	durationHistogram prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "counter_tx_outcomes_total",
			Help: "Submissions by terminal outcome",
		}, []string{"outcome"}),
		sendRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "counter_tx_send_retries_total",
			Help: "Sends retried after a transient RPC failure",
		}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "counter_tx_confirmation_polls_total",
			Help: "Signature status probes issued while awaiting confirmation",
		}),
		durationHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "counter_tx_duration_seconds",
			Help:    "Time from block reference fetch to terminal outcome",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		}),
	}
	reg.MustRegister(m.outcomes, m.sendRetries, m.polls, m.durationHistogram)
	return m
}

func (m *Metrics) trackOutcome(o Outcome, start time.Time) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(o.String()).Inc()
	m.durationHistogram.Observe(time.Since(start).Seconds())
}

func (m *Metrics) trackSendRetry() {
	if m == nil {
		return
	}
	m.sendRetries.Inc()
}

func (m *Metrics) trackPoll() {
	if m == nil {
		return
	}
	m.polls.Inc()
}
