// Package metrics holds the Prometheus instruments for the order service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsConsumed counts deliveries taken off the orders queue,
	// including ones that later fail or abort.
	EventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_events_consumed_total",
		Help: "Inbound order events taken off the orders queue.",
	})

	// CheckpointsReached counts completed checkpoint transitions, labeled
	// by the checkpoint tag (E8..E12).
	CheckpointsReached = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_checkpoints_reached_total",
		Help: "Completed commit-pipeline checkpoint transitions.",
	}, []string{"checkpoint"})

	// InjectedAborts counts aborts claimed from the fault-injection
	// oracle, labeled by the checkpoint that was prevented.
	InjectedAborts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_injected_aborts_total",
		Help: "Fault-injection aborts claimed before a checkpoint.",
	}, []string{"checkpoint"})

	// ProcessingFailures counts pipeline runs that ended in an error,
	// labeled by error kind.
	ProcessingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_processing_failures_total",
		Help: "Pipeline runs that ended in an error, by kind.",
	}, []string{"kind"})
)
