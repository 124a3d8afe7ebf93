// Package metrics holds the prometheus collectors exported by the
// storefront coordination core. They are served by the debug server when
// --debug-addr is set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

var (
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "requests_total",
		Help:      "Search requests by completion result (rendered, stale, failed).",
	}, []string{"result"})

	SearchCleared = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "cleared_total",
		Help:      "Inputs below the minimum query length that cleared the results.",
	})

	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mutation",
		Name:      "outcomes_total",
		Help:      "Mutation outcomes by action and kind.",
	}, []string{"action", "outcome"})

	PushMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "push",
		Name:      "messages_total",
		Help:      "Push channel messages by result (forwarded, dropped).",
	}, []string{"result"})

	PushReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "push",
		Name:      "reconnects_total",
		Help:      "Reconnect attempts made after an unexpected channel close.",
	})

	PushOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "push",
		Name:      "open",
		Help:      "1 while the push channel is open.",
	})

	NotificationsVisible = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "visible",
		Help:      "Notifications currently held by the queue.",
	})

	NotificationsDismissed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "dismissed_total",
		Help:      "Notifications removed from the queue by reason.",
	}, []string{"reason"})
)
