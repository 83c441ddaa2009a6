package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart and wishlist mutations by operation and result",
		},
		[]string{"operation", "result"},
	)

	malformedLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_malformed_loads_total",
			Help: "Stored values that could not be parsed and were treated as empty",
		},
		[]string{"key"},
	)

	droppedEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_dropped_entries_total",
			Help: "Stored entries dropped during normalization",
		},
		[]string{"key"},
	)
)

// Mutation results.
const (
	resultApplied = "applied"
	resultNoop    = "noop"
	resultError   = "error"
)
