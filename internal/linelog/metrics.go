package linelog

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	dropReasonDegraded   = "degraded"
	dropReasonClosed     = "closed"
	dropReasonWriteError = "write_error"
)

// Metrics counts what a Logger did with each Log call.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	linesWritten   prometheus.Counter
	bytesWritten   prometheus.Counter
	linesTruncated prometheus.Counter
	linesDropped   *prometheus.CounterVec
}

// NewMetrics creates the linelog counters and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		linesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linelog",
			Name:      "lines_written_total",
			Help:      "Lines appended to the debug log",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linelog",
			Name:      "bytes_written_total",
			Help:      "Bytes appended to the debug log, terminators included",
		}),
		linesTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linelog",
			Name:      "lines_truncated_total",
			Help:      "Lines cut to the maximum line length before being appended",
		}),
		linesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linelog",
			Name:      "lines_dropped_total",
			Help:      "Log calls that appended nothing",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.linesWritten, m.bytesWritten, m.linesTruncated, m.linesDropped)
	return m
}

func (m *Metrics) written(n int, truncated bool) {
	if m == nil {
		return
	}
	m.linesWritten.Inc()
	m.bytesWritten.Add(float64(n))
	if truncated {
		m.linesTruncated.Inc()
	}
}

func (m *Metrics) dropped(reason string) {
	if m == nil {
		return
	}
	m.linesDropped.WithLabelValues(reason).Inc()
}
