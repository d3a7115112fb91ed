package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	routingDecisionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "routing_decisions_total",
			Help:      "Total routing decisions by matched rule.",
		},
		[]string{"rule"},
	)

	routingOverlapWarningsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "routing_overlapping_windows_total",
			Help:      "Threads observed with multiple simultaneously active assignment windows.",
		},
	)

	policyBlocksCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "policy_blocks_total",
			Help:      "Outbound messages blocked by the anti-poaching scanner, by violation kind.",
		},
		[]string{"kind"},
	)

	sendsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "sends_processed_total",
			Help:      "Send operations by terminal status.",
		},
		[]string{"status"},
	)

	forceSendsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "force_sends_total",
			Help:      "Owner overrides of blocked messages.",
		},
	)

	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "messaging",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of outbound provider send calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	inboundProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "inbound_processed_total",
			Help:      "Inbound SMS routed, by delivery audience.",
		},
		[]string{"deliver_to"},
	)
)
