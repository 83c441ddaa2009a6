package event

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	busSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cart_bus_subscribers",
		Help: "Number of live in-process cart change subscriptions",
	})

	busDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_bus_dropped_total",
			Help: "Cart change notifications dropped because a subscriber buffer was full",
		},
		[]string{"name"},
	)

	storageEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_storage_events_total",
			Help: "Cross-instance storage events received, by outcome",
		},
		[]string{"outcome"},
	)

	notifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_notify_failures_total",
			Help: "Change notifications that failed on a channel",
		},
		[]string{"channel"},
	)
)
