package widget

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "widget_payment_attempts_total",
		Help: "Payment attempts by strategy and terminal status.",
	}, []string{"strategy", "status"})

	attemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "widget_payment_attempt_duration_seconds",
		Help:    "Duration of payment attempts from submission to terminal status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	resetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "widget_resets_total",
		Help: "Reset actions fired by the host.",
	})
)
