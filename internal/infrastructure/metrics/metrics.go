// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration observes request latency per route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "creditojus_http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	OffersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditojus_offers_created_total",
		Help: "Total number of offers created.",
	})

	OffersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditojus_offers_accepted_total",
		Help: "Total number of offers accepted.",
	})

	TransactionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditojus_transactions_started_total",
		Help: "Total number of transactions started.",
	})

	TransactionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditojus_transactions_completed_total",
		Help: "Total number of transactions completed.",
	})

	TransactionsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditojus_transactions_cancelled_total",
		Help: "Total number of transactions cancelled.",
	})
)
