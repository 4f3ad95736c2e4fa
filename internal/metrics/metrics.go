// Package metrics declares the Prometheus instrumentation for the core
// and bot orchestrator. Adapted from internal/fraud/metrics.go's
// promauto-registered vectors, renamed from fraud-detector concerns to
// Action API and bot-tick concerns.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionLatency measures how long one Action API operation takes from
	// call to return, including any wait for the party lock (spec §4.4/§4.6).
	ActionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zapzap_action_duration_seconds",
		Help:    "Time spent executing one Action API operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	ActionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapzap_action_total",
		Help: "Total number of Action API operations, by outcome",
	}, []string{"operation", "result"})

	// BotTickLatency measures one orchestrator tick's decide+commit time
	// for a single party (spec §4.7).
	BotTickLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zapzap_bot_tick_duration_seconds",
		Help:    "Time spent deciding and committing one bot move",
		Buckets: prometheus.DefBuckets,
	}, []string{"difficulty"})

	BotTickForfeits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zapzap_bot_tick_forfeits_total",
		Help: "Total number of bot ticks that missed their deadline and forfeited a draw",
	})

	// EventBusQueueDepth tracks the current number of buffered events summed
	// across all subscribers, and EventBusDrops counts dropped-oldest overflow events
	// (spec §4.5).
	EventBusQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zapzap_event_bus_queue_depth",
		Help: "Current number of buffered events across all subscribers",
	})

	EventBusDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zapzap_event_bus_drops_total",
		Help: "Total number of events dropped due to a full subscriber queue",
	})

	// RoundDuration measures wall-clock time from a round's creation to
	// its finish (spec §3's Round.createdAt/finishedAt).
	RoundDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zapzap_round_duration_seconds",
		Help:    "Wall-clock duration of a completed round",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
)
