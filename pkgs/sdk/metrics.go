package sdk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeAborted = "aborted"
)

// Metrics collects executor call statistics. A nil *Metrics records nothing.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Tokens   prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg when reg is not
// nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharpai",
			Name:      "requests_total",
			Help:      "Number of executor calls by method and outcome.",
		}, []string{"method", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sharpai",
			Name:      "request_duration_seconds",
			Help:      "Executor call latency by method.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"method"}),
		Tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharpai",
			Name:      "stream_tokens_total",
			Help:      "Number of tokens delivered by streamed responses.",
		}),
	}

	if reg != nil {
		for _, c := range m.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Requests, m.Duration, m.Tokens}
}

func (m *Metrics) observe(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, outcome).Inc()
	m.Duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) token(string) {
	if m == nil {
		return
	}
	m.Tokens.Inc()
}
