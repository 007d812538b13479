package triage

import "github.com/prometheus/client_golang/prometheus"

// Hooks receives triage events. Nil funcs are skipped.
type Hooks struct {
	OnSentimentCall   func(result string, duration float64)
	OnSignalReadError func(source string)
	OnAlertChange     func(level Level)
	OnResolve         func(rule string)
}

func (h Hooks) sentimentCall(result string, duration float64) {
	if h.OnSentimentCall != nil {
		h.OnSentimentCall(result, duration)
	}
}

func (h Hooks) signalReadError(source string) {
	if h.OnSignalReadError != nil {
		h.OnSignalReadError(source)
	}
}

func (h Hooks) alertChange(level Level) {
	if h.OnAlertChange != nil {
		h.OnAlertChange(level)
	}
}

func (h Hooks) resolve(rule string) {
	if h.OnResolve != nil {
		h.OnResolve(rule)
	}
}

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	SentimentCallsTotal *prometheus.CounterVec
	SentimentDuration   prometheus.Histogram
	SignalReadErrors    *prometheus.CounterVec
	AlertChangesTotal   *prometheus.CounterVec
	ResolutionsTotal    *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SentimentCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloomwatch_sentiment_calls_total",
			Help: "Total sentiment collaborator calls by result.",
		}, []string{"result"}),
		SentimentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloomwatch_sentiment_call_duration_seconds",
			Help:    "Duration of sentiment collaborator calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s .. ~32s
		}),
		SignalReadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloomwatch_signal_read_errors_total",
			Help: "Signal reads that failed or returned malformed data, by source.",
		}, []string{"source"}),
		AlertChangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloomwatch_alert_changes_total",
			Help: "Caregiver alert changes by new level.",
		}, []string{"level"}),
		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloomwatch_resolutions_total",
			Help: "Alert resolutions by matching rule.",
		}, []string{"rule"}),
	}

	reg.MustRegister(
		m.SentimentCallsTotal,
		m.SentimentDuration,
		m.SignalReadErrors,
		m.AlertChangesTotal,
		m.ResolutionsTotal,
	)

	return m
}

// Hooks returns Hooks that update the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnSentimentCall: func(result string, duration float64) {
			m.SentimentCallsTotal.WithLabelValues(result).Inc()
			m.SentimentDuration.Observe(duration)
		},
		OnSignalReadError: func(source string) {
			m.SignalReadErrors.WithLabelValues(source).Inc()
		},
		OnAlertChange: func(level Level) {
			m.AlertChangesTotal.WithLabelValues(string(level)).Inc()
		},
		OnResolve: func(rule string) {
			m.ResolutionsTotal.WithLabelValues(rule).Inc()
		},
	}
}
