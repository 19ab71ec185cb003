package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feereg_syncs_total",
		Help: "The total number of committed pool synchronizations",
	})

	DepositedAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feereg_deposited_amount_total",
		Help: "Protocol fees deposited by pools, per token",
	}, []string{"token"})

	WithdrawnAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feereg_withdrawn_amount_total",
		Help: "Protocol fees withdrawn by the owner, per token",
	}, []string{"token"})

	ConfigUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feereg_config_updates_total",
		Help: "Committed registry config updates",
	})

	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feereg_rejections_total",
		Help: "Rejected registry calls",
	}, []string{"code"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feereg_latency_seconds",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
