// Package metrics holds the client's prometheus collectors.
//
// Collectors register on the default registry; the optional debug listener in
// internal/app exposes them. Counters are cheap enough to keep unconditional.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connects counts transport connection attempts by outcome.
	Connects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loci_transport_connects_total",
		Help: "Transport connection attempts by outcome.",
	}, []string{"outcome"})

	// EventsReceived counts inbound realtime events by event name.
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loci_transport_events_received_total",
		Help: "Inbound realtime events by event name.",
	}, []string{"event"})

	// EventsDropped counts inbound events discarded without a listener.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loci_transport_events_dropped_total",
		Help: "Inbound realtime events discarded without a bound listener.",
	})

	// Emits counts outbound realtime events by event name.
	Emits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loci_transport_emits_total",
		Help: "Outbound realtime events by event name.",
	}, []string{"event"})

	// SessionJoins counts channel joins by channel kind.
	SessionJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loci_session_joins_total",
		Help: "Channel joins by channel kind.",
	}, []string{"kind"})

	// SessionLeaves counts channel leaves by channel kind.
	SessionLeaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loci_session_leaves_total",
		Help: "Channel leaves by channel kind.",
	}, []string{"kind"})

	// RelayAlerts counts notification alerts surfaced by the relay.
	RelayAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loci_relay_alerts_total",
		Help: "Private-message notification alerts surfaced to the UI.",
	})
)
