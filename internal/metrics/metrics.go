package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "emotion_sessions_active",
		Help: "Sessions currently registered in the in-memory index",
	})

	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emotion_sessions_started_total",
		Help: "Total sessions created",
	})

	SessionsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emotion_sessions_finalized_total",
		Help: "Total sessions finalized",
	})

	InputsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emotion_inputs_received_total",
		Help: "Total input items appended across all sessions",
	})

	FinalizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "emotion_finalize_duration_seconds",
		Help:    "End-to-end finalize latency (all inputs classified)",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
	})

	ClassifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "emotion_classify_duration_seconds",
		Help:    "Per-image classifier latency",
		Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
	}, []string{"engine"})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emotion_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage", "error_type"})

	Fallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emotion_classify_fallbacks_total",
		Help: "Inputs that received the zero-score fallback vocabulary",
	})
)
