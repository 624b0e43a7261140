package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/shriniketh555/medcare/internal/notify"
	"github.com/shriniketh555/medcare/internal/tracker"
)

// DailySummary sends the caregiver an end-of-day adherence digest at a fixed
// local time.
type DailySummary struct {
	cron     *cron.Cron
	tracker  *tracker.Tracker
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewDailySummary schedules the digest at the given HH:MM local time.
func NewDailySummary(trk *tracker.Tracker, notifier notify.Notifier, at string, logger *zap.Logger) (*DailySummary, error) {
	parts := strings.SplitN(at, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid summary time %q, want HH:MM", at)
	}

	d := &DailySummary{
		cron:     cron.New(),
		tracker:  trk,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}

	spec := fmt.Sprintf("%s %s * * *", parts[1], parts[0])
	if _, err := d.cron.AddFunc(spec, d.send); err != nil {
		return nil, fmt.Errorf("invalid summary time %q: %w", at, err)
	}

	return d, nil
}

func (d *DailySummary) Start() {
	d.cron.Start()
	d.logger.Info("Daily summary scheduled")
}

func (d *DailySummary) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// send builds and delivers today's digest. Without a caregiver on file there
// is nobody to digest for, so the run is a no-op.
func (d *DailySummary) send() {
	profile := d.tracker.Profile()
	if profile.CaregiverEmail == "" {
		d.logger.Debug("No caregiver configured, daily summary skipped")
		return
	}

	date := d.now().Format(tracker.DateLayout)
	stats := tracker.Aggregate(d.tracker.Schedule(date))

	event := notify.DailySummary(profile, date, stats)
	if err := d.notifier.Send(context.Background(), event); err != nil {
		d.logger.Warn("Daily summary delivery failed", zap.Error(err))
		return
	}
	d.logger.Info("Daily summary sent",
		zap.String("date", date),
		zap.Int("taken", stats.Taken),
		zap.Int("total", stats.Total))
}
