package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event outcomes.
const (
	OutcomeNotified    = "notified"
	OutcomeDropped     = "dropped"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
	OutcomeInvalid     = "invalid"
	OutcomeDuplicate   = "duplicate"
	OutcomeDelivered   = "delivered"
	OutcomeUndelivered = "undelivered"
)

var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_events_total",
			Help: "Domain events handled by the dispatcher, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "push_dispatch_duration_seconds",
			Help:    "Time from event receipt to handler return",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"kind"},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Live delivery attempts, by outcome",
		},
		[]string{"outcome"},
	)

	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "push_live_subscribers",
			Help: "Open websocket subscriptions",
		},
	)
)
