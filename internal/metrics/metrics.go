// Package metrics defines the Prometheus collectors for the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExpenseMutations counts processed expense mutations by change type.
	ExpenseMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_mutations_total",
		Help: "Expense mutations processed by the engine, by change type.",
	}, []string{"change"})

	// BudgetAlerts counts budget alert decisions that produced a notification.
	BudgetAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "budget_alerts_total",
		Help: "Budget alert transitions emitted, by outcome.",
	}, []string{"outcome"})

	// NotificationsDelivered counts events delivered to a live channel.
	NotificationsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_delivered_total",
		Help: "Notification events delivered to a connected channel.",
	})

	// NotificationsDropped counts events that could not be delivered,
	// either because the recipient had no open channel or a send failed.
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Notification events dropped (offline recipient or send failure).",
	})

	// OpenConnections tracks currently registered notification channels.
	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notification_connections_open",
		Help: "Currently open websocket notification connections.",
	})
)
