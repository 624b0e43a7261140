// Package notify delivers reminder and caregiver notifications. Delivery is
// best-effort by contract: sinks may fail transiently, failures are logged and
// counted, and no sink failure ever propagates into the scheduler loop.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shriniketh555/medcare/internal/metrics"
	"github.com/shriniketh555/medcare/internal/tracker"
)

// Kind classifies an outbound notification.
type Kind string

const (
	KindReminder       Kind = "reminder"
	KindCaregiverAlert Kind = "caregiver-alert"
	KindDailySummary   Kind = "daily-summary"
)

// Event is an ephemeral notification payload. It is emitted and forgotten,
// never persisted.
type Event struct {
	Kind         Kind   `json:"kind"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	MedicineID   string `json:"medicine_id,omitempty"`
	MedicineName string `json:"medicine_name,omitempty"`
	Time         string `json:"time,omitempty"`
}

// Notifier is the delivery sink contract. Send must not be assumed
// synchronous or reliable.
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

// Reminder builds the dose reminder payload: name, dosage, instructions.
func Reminder(med tracker.Medicine) Event {
	instructions := med.Instructions
	if instructions == "" {
		instructions = "Take as prescribed"
	}
	return Event{
		Kind:         KindReminder,
		Title:        "Medicine Reminder",
		Body:         fmt.Sprintf("Time to take %s - %s\n%s", med.Name, med.Dosage, instructions),
		MedicineID:   med.ID,
		MedicineName: med.Name,
	}
}

// CaregiverAlert builds the escalation payload: patient name, medicine name,
// scheduled time.
func CaregiverAlert(patient tracker.Profile, med tracker.Medicine, timeOfDay string) Event {
	name := patient.Name
	if name == "" {
		name = "The patient"
	}
	return Event{
		Kind:         KindCaregiverAlert,
		Title:        "Caregiver Alert",
		Body:         fmt.Sprintf("%s may have missed %s scheduled for %s", name, med.Name, timeOfDay),
		MedicineID:   med.ID,
		MedicineName: med.Name,
		Time:         timeOfDay,
	}
}

// DailySummary builds the end-of-day adherence digest for the caregiver.
func DailySummary(patient tracker.Profile, date string, stats tracker.Stats) Event {
	name := patient.Name
	if name == "" {
		name = "The patient"
	}
	return Event{
		Kind:  KindDailySummary,
		Title: "Daily Medicine Summary",
		Body: fmt.Sprintf("%s on %s: %d of %d doses taken (%d%% adherence), %d skipped, %d missed",
			name, date, stats.Taken, stats.Total, stats.AdherenceRate, stats.Skipped, stats.Missed),
		Time: date,
	}
}

// Multi fans an event out to every sink. Each sink failure is logged and
// counted but never stops delivery to the remaining sinks; Multi itself
// always reports success.
type Multi struct {
	sinks  []named
	logger *zap.Logger
}

type named struct {
	name string
	sink Notifier
}

func NewMulti(logger *zap.Logger) *Multi {
	return &Multi{logger: logger}
}

// Add registers a sink under a name used in logs and metrics.
func (m *Multi) Add(name string, sink Notifier) *Multi {
	m.sinks = append(m.sinks, named{name: name, sink: sink})
	return m
}

func (m *Multi) Send(ctx context.Context, event Event) error {
	for _, entry := range m.sinks {
		if err := entry.sink.Send(ctx, event); err != nil {
			metrics.NotificationsFailed.WithLabelValues(entry.name).Inc()
			m.logger.Warn("Notification delivery failed",
				zap.String("sink", entry.name),
				zap.String("kind", string(event.Kind)),
				zap.Error(err),
			)
		}
	}
	return nil
}

// LogSink writes every event to the structured log. Always configured, so a
// bare installation still surfaces reminders somewhere.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, event Event) error {
	s.logger.Info("Notification",
		zap.String("kind", string(event.Kind)),
		zap.String("title", event.Title),
		zap.String("body", event.Body),
	)
	return nil
}
