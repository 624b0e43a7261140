// Package metrics exposes prometheus counters for the tracking and reminder
// pipeline. All collectors are registered on the default registry and served
// at /metrics by the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "medcare",
		Name:      "reminders_sent_total",
		Help:      "Dose reminders emitted by the scheduler.",
	})

	CaregiverAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "medcare",
		Name:      "caregiver_alerts_total",
		Help:      "Escalation alerts sent to the caregiver.",
	})

	EscalationsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "medcare",
		Name:      "escalations_resolved_total",
		Help:      "Escalation checks that found the dose already handled.",
	})

	NotificationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medcare",
		Name:      "notification_failures_total",
		Help:      "Notification sends that returned an error, by sink.",
	}, []string{"sink"})

	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "medcare",
		Name:      "notifications_dropped_total",
		Help:      "Notifications dropped by the outbound rate limiter.",
	})

	IntakesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medcare",
		Name:      "intakes_recorded_total",
		Help:      "Intake status updates applied, by status.",
	}, []string{"status"})

	PersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "medcare",
		Name:      "persistence_failures_total",
		Help:      "Mutations that could not be written through to the store.",
	})
)
