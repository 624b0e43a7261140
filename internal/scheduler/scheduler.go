// Package scheduler runs the reminder loop: a minute-resolution tick that
// fires dose reminders for due slots and escalates to the caregiver when a
// dose stays unrecorded past the grace period.
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shriniketh555/medcare/internal/metrics"
	"github.com/shriniketh555/medcare/internal/notify"
	"github.com/shriniketh555/medcare/internal/tracker"
)

// markTTL keeps dedupe marks long enough to span restarts within the same
// slot's lifetime, short enough that keys from old days expire on their own.
const markTTL = 48 * time.Hour

// SlotMarker is the durable reminder dedupe store. The in-memory fired set
// handles the common case; the marker keeps a restart from re-firing slots
// already reminded earlier in the day.
type SlotMarker interface {
	MarkSlot(key string, ttl time.Duration) error
	SlotMarked(key string) (bool, error)
}

// Scheduler drives reminders and caregiver escalations off the tracker's
// schedule. Timers are soft state: a deleted medicine's pending escalation
// fires harmlessly and resolves itself.
type Scheduler struct {
	tracker  *tracker.Tracker
	notifier notify.Notifier
	marks    SlotMarker
	logger   *zap.Logger
	interval time.Duration
	grace    time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	fired       map[string]bool
	escalations escalationHeap
}

func New(trk *tracker.Tracker, notifier notify.Notifier, marks SlotMarker, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		tracker:  trk,
		notifier: notifier,
		marks:    marks,
		logger:   logger,
		interval: time.Minute,
		grace:    30 * time.Minute,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		fired:    make(map[string]bool),
	}
}

// WithInterval sets the tick interval.
func (s *Scheduler) WithInterval(interval time.Duration) *Scheduler {
	s.interval = interval
	return s
}

// WithGrace sets how long a due dose may stay unrecorded before the caregiver
// is alerted.
func (s *Scheduler) WithGrace(grace time.Duration) *Scheduler {
	s.grace = grace
	return s
}

// WithNow overrides the wall clock, for tests.
func (s *Scheduler) WithNow(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start starts the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("Starting reminder scheduler",
		zap.Duration("interval", s.interval),
		zap.Duration("grace", s.grace))

	s.wg.Add(1)
	go s.run(ctx)

	return nil
}

// Stop stops the scheduler and waits for the loop to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Reminder scheduler stopped")

	return nil
}

// IsRunning returns true if the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx, s.now())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}

// Tick runs one scheduler pass at the given instant: fire reminders for
// newly due slots, then fire escalations whose grace period has elapsed.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic in scheduler tick", zap.Any("recover", r))
		}
	}()

	s.remindDue(ctx, now)
	s.fireDue(ctx, now)
}

// remindDue sends one reminder per slot whose scheduled minute is now. Only a
// recorded taken suppresses the reminder; a skipped dose still gets one, and
// the escalation re-check is where any recorded intake settles the slot.
// Slots whose minute already passed are history, resolved as missed by the
// status resolver, and never reminded late.
func (s *Scheduler) remindDue(ctx context.Context, now time.Time) {
	date := now.Format(tracker.DateLayout)
	timeOfDay := now.Format(tracker.TimeLayout)

	for _, ob := range s.tracker.Schedule(date) {
		if ob.Time != timeOfDay {
			continue
		}
		if ob.Intake != nil && ob.Intake.Status == tracker.StatusTaken {
			continue
		}

		key := tracker.SlotKey(ob.Medicine.ID, ob.Date, ob.Time)
		if s.alreadyFired(key) {
			continue
		}

		if err := s.notifier.Send(ctx, notify.Reminder(ob.Medicine)); err != nil {
			s.logger.Warn("Reminder delivery failed",
				zap.String("medicine", ob.Medicine.Name), zap.Error(err))
		}
		metrics.RemindersSent.Inc()
		s.logger.Info("Reminder fired",
			zap.String("medicine", ob.Medicine.Name),
			zap.String("time", ob.Time))

		s.markFired(key)
		s.pushEscalation(&escalation{
			fireAt:     now.Add(s.grace),
			medicineID: ob.Medicine.ID,
			date:       ob.Date,
			timeOfDay:  ob.Time,
		})
	}
}

// fireDue pops every escalation whose deadline has passed and re-checks the
// slot before alerting: an intake recorded in the meantime, or a deleted
// medicine, resolves the escalation silently.
func (s *Scheduler) fireDue(ctx context.Context, now time.Time) {
	for {
		s.mu.Lock()
		if len(s.escalations) == 0 || s.escalations[0].fireAt.After(now) {
			s.mu.Unlock()
			return
		}
		esc := heap.Pop(&s.escalations).(*escalation)
		s.mu.Unlock()

		med, err := s.tracker.Medicine(esc.medicineID)
		if err != nil {
			metrics.EscalationsResolved.Inc()
			continue
		}
		if s.tracker.FindIntake(esc.medicineID, esc.date, esc.timeOfDay) != nil {
			metrics.EscalationsResolved.Inc()
			s.logger.Debug("Escalation resolved by recorded intake",
				zap.String("medicine", med.Name), zap.String("time", esc.timeOfDay))
			continue
		}

		profile := s.tracker.Profile()
		if profile.CaregiverEmail == "" {
			s.logger.Debug("No caregiver configured, escalation dropped",
				zap.String("medicine", med.Name))
			continue
		}

		if err := s.notifier.Send(ctx, notify.CaregiverAlert(profile, *med, esc.timeOfDay)); err != nil {
			s.logger.Warn("Caregiver alert delivery failed",
				zap.String("medicine", med.Name), zap.Error(err))
		}
		metrics.CaregiverAlerts.Inc()
		s.logger.Info("Caregiver alert fired",
			zap.String("medicine", med.Name),
			zap.String("time", esc.timeOfDay))
	}
}

// PendingEscalations reports how many escalations are waiting to fire.
func (s *Scheduler) PendingEscalations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.escalations)
}

func (s *Scheduler) alreadyFired(key string) bool {
	s.mu.Lock()
	inMemory := s.fired[key]
	s.mu.Unlock()
	if inMemory {
		return true
	}
	marked, err := s.marks.SlotMarked(key)
	if err != nil {
		s.logger.Warn("Slot mark lookup failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return marked
}

func (s *Scheduler) markFired(key string) {
	s.mu.Lock()
	s.fired[key] = true
	s.mu.Unlock()
	if err := s.marks.MarkSlot(key, markTTL); err != nil {
		s.logger.Warn("Slot mark write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Scheduler) pushEscalation(esc *escalation) {
	s.mu.Lock()
	heap.Push(&s.escalations, esc)
	s.mu.Unlock()
}

// escalation is a pending caregiver alert, keyed by the slot it watches.
type escalation struct {
	fireAt     time.Time
	medicineID string
	date       string
	timeOfDay  string
}

type escalationHeap []*escalation

func (h escalationHeap) Len() int            { return len(h) }
func (h escalationHeap) Less(i, j int) bool  { return h[i].fireAt.Before(h[j].fireAt) }
func (h escalationHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *escalationHeap) Push(x interface{}) { *h = append(*h, x.(*escalation)) }
func (h *escalationHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
