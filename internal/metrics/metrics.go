// Package metrics exposes Prometheus collectors for the chat pipeline.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "profsync"

type Recorder struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	upstreamErrors *prometheus.CounterVec
	historyTurns   prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		return nil, errors.New("metrics: registerer must not be nil")
	}
	r := &Recorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages handled, by branch taken.",
		}, []string{"branch"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_duration_seconds",
			Help:      "End-to-end message handling latency, by branch taken.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"branch"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Upstream failures absorbed into the fallback reply, by pipeline stage.",
		}, []string{"stage"}),
		historyTurns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_turns",
			Help:      "Turns held in the in-process conversation history.",
		}),
	}
	for _, c := range []prometheus.Collector{r.requests, r.duration, r.upstreamErrors, r.historyTurns} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ObserveMessage(branch string, elapsed time.Duration) {
	r.requests.WithLabelValues(branch).Inc()
	r.duration.WithLabelValues(branch).Observe(elapsed.Seconds())
}

func (r *Recorder) UpstreamError(stage string) {
	r.upstreamErrors.WithLabelValues(stage).Inc()
}

func (r *Recorder) SetHistoryTurns(n int) {
	r.historyTurns.Set(float64(n))
}
