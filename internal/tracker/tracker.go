package tracker

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/shriniketh555/medcare/internal/errors"
	"github.com/shriniketh555/medcare/internal/metrics"
)

// Persister is the storage collaborator. Three logical collections: medicines,
// intakes, and the singleton profile. The tracker hydrates from it on startup
// and writes through after each mutation; in-memory state stays authoritative
// when it is unavailable.
type Persister interface {
	ListMedicines(ctx context.Context) ([]Medicine, error)
	PutMedicine(ctx context.Context, med Medicine) error
	DeleteMedicine(ctx context.Context, id string) error

	ListIntakes(ctx context.Context) ([]Intake, error)
	PutIntake(ctx context.Context, intake Intake) error
	DeleteIntakesFor(ctx context.Context, medicineID string) error

	GetProfile(ctx context.Context) (*Profile, error)
	PutProfile(ctx context.Context, p Profile) error
}

// Tracker owns the medicine set, intake ledger, and profile. All mutations go
// through it under one lock; readers get copies, so the scheduler and the
// aggregator never see live mutable state.
type Tracker struct {
	mu        sync.RWMutex
	medicines []Medicine
	ledger    *Ledger
	profile   Profile

	persister Persister
	logger    *zap.Logger
	now       func() time.Time
}

func New(persister Persister, logger *zap.Logger) *Tracker {
	return &Tracker{
		ledger:    NewLedger(),
		persister: persister,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the wall clock, for tests.
func (t *Tracker) WithNow(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Hydrate loads all collections from the store. A failure leaves the tracker
// empty but usable; the error is surfaced so the caller can report it.
func (t *Tracker) Hydrate(ctx context.Context) error {
	medicines, err := t.persister.ListMedicines(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrPersistence.Code, "hydrating medicines")
	}
	intakes, err := t.persister.ListIntakes(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrPersistence.Code, "hydrating intakes")
	}
	profile, err := t.persister.GetProfile(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrPersistence.Code, "hydrating profile")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.medicines = medicines
	t.ledger = NewLedger()
	for _, intake := range intakes {
		t.ledger.Load(intake)
	}
	if profile != nil {
		t.profile = *profile
	}

	t.logger.Info("Tracker hydrated",
		zap.Int("medicines", len(medicines)),
		zap.Int("intakes", len(intakes)),
	)
	return nil
}

// ==================== Medicines ====================

// AddMedicine validates and registers a medicine, assigning its id. The record
// is rejected whole on validation failure, never partially applied.
func (t *Tracker) AddMedicine(ctx context.Context, med Medicine) (*Medicine, error) {
	if err := normalizeMedicine(&med); err != nil {
		return nil, err
	}
	med.ID = uuid.NewString()
	med.CreatedAt = t.now()
	med.UpdatedAt = med.CreatedAt

	t.mu.Lock()
	t.medicines = append(t.medicines, med)
	t.mu.Unlock()

	if err := t.persister.PutMedicine(ctx, med); err != nil {
		metrics.PersistenceFailures.Inc()
		t.logger.Warn("Medicine not persisted, continuing unsynced",
			zap.String("medicine_id", med.ID), zap.Error(err))
		return &med, apperrors.Wrap(err, apperrors.ErrPersistence.Code, "saving medicine")
	}
	return &med, nil
}

// UpdateMedicine applies a partial update. Unknown id is an explicit error.
func (t *Tracker) UpdateMedicine(ctx context.Context, id string, patch MedicineUpdate) (*Medicine, error) {
	t.mu.Lock()
	idx := t.indexOf(id)
	if idx < 0 {
		t.mu.Unlock()
		return nil, apperrors.ErrMedicineNotFound
	}

	merged := t.medicines[idx]
	if patch.Name != nil {
		merged.Name = *patch.Name
	}
	if patch.Dosage != nil {
		merged.Dosage = *patch.Dosage
	}
	if patch.Frequency != nil {
		merged.Frequency = *patch.Frequency
	}
	if patch.Times != nil {
		merged.Times = append([]string(nil), (*patch.Times)...)
	}
	if patch.Instructions != nil {
		merged.Instructions = *patch.Instructions
	}
	if patch.StartDate != nil {
		merged.StartDate = *patch.StartDate
	}
	if patch.ClearEndDate {
		merged.EndDate = nil
	} else if patch.EndDate != nil {
		end := *patch.EndDate
		merged.EndDate = &end
	}

	if err := normalizeMedicine(&merged); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	merged.UpdatedAt = t.now()
	t.medicines[idx] = merged
	t.mu.Unlock()

	if err := t.persister.PutMedicine(ctx, merged); err != nil {
		metrics.PersistenceFailures.Inc()
		t.logger.Warn("Medicine update not persisted",
			zap.String("medicine_id", id), zap.Error(err))
		return &merged, apperrors.Wrap(err, apperrors.ErrPersistence.Code, "saving medicine")
	}
	return &merged, nil
}

// DeleteMedicine removes the medicine and cascades to every intake that
// references it. Referential integrity lives here, not in the store.
func (t *Tracker) DeleteMedicine(ctx context.Context, id string) error {
	t.mu.Lock()
	idx := t.indexOf(id)
	if idx < 0 {
		t.mu.Unlock()
		return apperrors.ErrMedicineNotFound
	}
	t.medicines = append(t.medicines[:idx], t.medicines[idx+1:]...)
	removed := t.ledger.RemoveAllFor(id)
	t.mu.Unlock()

	t.logger.Info("Medicine deleted",
		zap.String("medicine_id", id),
		zap.Int("intakes_removed", removed),
	)

	if err := t.persister.DeleteMedicine(ctx, id); err != nil {
		metrics.PersistenceFailures.Inc()
		return apperrors.Wrap(err, apperrors.ErrPersistence.Code, "deleting medicine")
	}
	if err := t.persister.DeleteIntakesFor(ctx, id); err != nil {
		metrics.PersistenceFailures.Inc()
		return apperrors.Wrap(err, apperrors.ErrPersistence.Code, "deleting intakes")
	}
	return nil
}

// Medicines returns a copy of the medicine set.
func (t *Tracker) Medicines() []Medicine {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyMedicines(t.medicines)
}

// Medicine returns one medicine by id.
func (t *Tracker) Medicine(id string) (*Medicine, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx := t.indexOf(id); idx >= 0 {
		med := t.medicines[idx]
		med.Times = append([]string(nil), med.Times...)
		return &med, nil
	}
	return nil, apperrors.ErrMedicineNotFound
}

// ==================== Intakes ====================

// SetIntakeStatus records taken/skipped/missed for a dose slot, creating or
// overwriting the slot's intake. The time must be one of the medicine's
// scheduled times. Missed is accepted only as an explicit record; it is never
// synthesized here.
func (t *Tracker) SetIntakeStatus(ctx context.Context, medicineID, date, timeOfDay string, status Status) (*Intake, error) {
	switch status {
	case StatusTaken, StatusSkipped, StatusMissed:
	default:
		return nil, apperrors.ErrInvalidStatus
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, apperrors.ErrInvalidDate
	}
	if _, err := time.Parse(TimeLayout, timeOfDay); err != nil {
		return nil, apperrors.ErrInvalidTime
	}

	t.mu.Lock()
	idx := t.indexOf(medicineID)
	if idx < 0 {
		t.mu.Unlock()
		return nil, apperrors.ErrMedicineNotFound
	}
	if !ScheduledAt(t.medicines[idx], timeOfDay) {
		t.mu.Unlock()
		return nil, apperrors.ErrUnscheduledTime
	}
	intake := t.ledger.Upsert(medicineID, date, timeOfDay, status, t.now())
	t.mu.Unlock()

	metrics.IntakesRecorded.WithLabelValues(string(status)).Inc()

	if err := t.persister.PutIntake(ctx, *intake); err != nil {
		metrics.PersistenceFailures.Inc()
		t.logger.Warn("Intake not persisted, continuing unsynced",
			zap.String("intake_id", intake.ID), zap.Error(err))
		return intake, apperrors.Wrap(err, apperrors.ErrPersistence.Code, "saving intake")
	}
	return intake, nil
}

// FindIntake returns the intake for a slot, or nil when none is recorded.
func (t *Tracker) FindIntake(medicineID, date, timeOfDay string) *Intake {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.Find(medicineID, date, timeOfDay)
}

// Intakes returns every recorded intake in insertion order.
func (t *Tracker) Intakes() []Intake {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.List()
}

// IntakesSince returns all intakes on or after the date.
func (t *Tracker) IntakesSince(date string) []Intake {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.ListSince(date)
}

// IntakesBetween returns intakes inside [start, end], sorted by date then time.
func (t *Tracker) IntakesBetween(start, end string) []Intake {
	t.mu.RLock()
	intakes := t.ledger.ListSince(start)
	t.mu.RUnlock()

	var out []Intake
	for _, intake := range intakes {
		if end == "" || intake.Date <= end {
			out = append(out, intake)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

// ==================== Schedule & reports ====================

// Schedule expands and resolves the full dose schedule for a date against the
// current wall clock.
func (t *Tracker) Schedule(date string) []ResolvedObligation {
	now := t.now()
	refDate := now.Format(DateLayout)
	refTime := now.Format(TimeLayout)

	t.mu.RLock()
	defer t.mu.RUnlock()
	return ResolveAll(Expand(t.medicines, date), t.ledger, refDate, refTime)
}

// Report is the adherence report over [start, end], optionally filtered to one
// medicine: overall stats plus per-day and per-medicine breakdowns.
type Report struct {
	Stats     Stats           `json:"stats"`
	Days      []DayStats      `json:"days"`
	Medicines []MedicineStats `json:"medicines"`
}

func (t *Tracker) Report(start, end, medicineID string) (*Report, error) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, apperrors.ErrInvalidDate
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, apperrors.ErrInvalidDate
	}

	now := t.now()
	refDate := now.Format(DateLayout)
	refTime := now.Format(TimeLayout)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var resolved []ResolvedObligation
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		date := day.Format(DateLayout)
		for _, item := range ResolveAll(Expand(t.medicines, date), t.ledger, refDate, refTime) {
			if medicineID != "" && item.Medicine.ID != medicineID {
				continue
			}
			resolved = append(resolved, item)
		}
	}

	return &Report{
		Stats:     Aggregate(resolved),
		Days:      AggregateByDay(resolved),
		Medicines: AggregateByMedicine(resolved),
	}, nil
}

// ==================== Profile ====================

// Profile returns a copy of the patient profile.
func (t *Tracker) Profile() Profile {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.profile
}

// SetProfile replaces the profile wholesale.
func (t *Tracker) SetProfile(ctx context.Context, p Profile) error {
	p.UpdatedAt = t.now()

	t.mu.Lock()
	t.profile = p
	t.mu.Unlock()

	if err := t.persister.PutProfile(ctx, p); err != nil {
		metrics.PersistenceFailures.Inc()
		t.logger.Warn("Profile not persisted, continuing unsynced", zap.Error(err))
		return apperrors.Wrap(err, apperrors.ErrPersistence.Code, "saving profile")
	}
	return nil
}

// Snapshot returns copies of the medicine set and profile for the scheduler.
func (t *Tracker) Snapshot() ([]Medicine, Profile) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyMedicines(t.medicines), t.profile
}

// ==================== helpers ====================

// indexOf requires t.mu held.
func (t *Tracker) indexOf(id string) int {
	for i := range t.medicines {
		if t.medicines[i].ID == id {
			return i
		}
	}
	return -1
}

func copyMedicines(medicines []Medicine) []Medicine {
	out := make([]Medicine, len(medicines))
	copy(out, medicines)
	for i := range out {
		out[i].Times = append([]string(nil), out[i].Times...)
	}
	return out
}

// normalizeMedicine trims fields, drops blank time entries, and enforces the
// validation rules. Mutates the medicine only when it is fully valid.
func normalizeMedicine(med *Medicine) error {
	name := strings.TrimSpace(med.Name)
	dosage := strings.TrimSpace(med.Dosage)
	if name == "" {
		return apperrors.ErrMedicineName
	}
	if dosage == "" {
		return apperrors.ErrMedicineDosage
	}

	var times []string
	for _, raw := range med.Times {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if _, err := time.Parse(TimeLayout, trimmed); err != nil {
			return apperrors.ErrInvalidTime
		}
		times = append(times, trimmed)
	}
	if len(times) == 0 {
		return apperrors.ErrMedicineTimes
	}
	sort.Strings(times)

	if _, err := time.Parse(DateLayout, med.StartDate); err != nil {
		return apperrors.ErrInvalidDate
	}
	if med.EndDate != nil {
		if _, err := time.Parse(DateLayout, *med.EndDate); err != nil {
			return apperrors.ErrInvalidDate
		}
		if *med.EndDate < med.StartDate {
			return apperrors.ErrMedicineDates
		}
	}

	med.Name = name
	med.Dosage = dosage
	med.Times = times
	return nil
}
