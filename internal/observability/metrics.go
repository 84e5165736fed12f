package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingTransitions counts committed booking transitions by event.
	BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timerenting_booking_transitions_total",
		Help: "Committed booking lifecycle transitions by event",
	}, []string{"event"})

	// CreditsMoved sums the absolute credits moved by ledger entry kind.
	CreditsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timerenting_credits_moved_total",
		Help: "Time credits moved through the ledger by entry kind",
	}, []string{"kind"})

	// OperationFailures counts rejected operations by error code.
	OperationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timerenting_operation_failures_total",
		Help: "Marketplace operations that returned an error, by operation and code",
	}, []string{"operation", "code"})

	// WebSocketConnections is the number of open websocket connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timerenting_websocket_connections",
		Help: "Open websocket connections on this instance",
	})

	// NotificationsEnqueued counts out-of-band notifications by task type and result.
	NotificationsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timerenting_notifications_enqueued_total",
		Help: "Notification tasks handed to the queue",
	}, []string{"task", "result"})
)
