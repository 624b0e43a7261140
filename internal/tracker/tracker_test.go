package tracker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/shriniketh555/medcare/internal/errors"
)

// fakePersister records writes in memory and can be switched to fail.
type fakePersister struct {
	medicines map[string]Medicine
	intakes   map[string]Intake
	profile   *Profile
	fail      bool
}

func newFakePersister() *fakePersister {
	return &fakePersister{
		medicines: make(map[string]Medicine),
		intakes:   make(map[string]Intake),
	}
}

func (f *fakePersister) err() error {
	if f.fail {
		return fmt.Errorf("store unreachable")
	}
	return nil
}

func (f *fakePersister) ListMedicines(ctx context.Context) ([]Medicine, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	var out []Medicine
	for _, m := range f.medicines {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakePersister) PutMedicine(ctx context.Context, med Medicine) error {
	if err := f.err(); err != nil {
		return err
	}
	f.medicines[med.ID] = med
	return nil
}

func (f *fakePersister) DeleteMedicine(ctx context.Context, id string) error {
	if err := f.err(); err != nil {
		return err
	}
	delete(f.medicines, id)
	return nil
}

func (f *fakePersister) ListIntakes(ctx context.Context) ([]Intake, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	var out []Intake
	for _, i := range f.intakes {
		out = append(out, i)
	}
	return out, nil
}

func (f *fakePersister) PutIntake(ctx context.Context, intake Intake) error {
	if err := f.err(); err != nil {
		return err
	}
	f.intakes[intake.ID] = intake
	return nil
}

func (f *fakePersister) DeleteIntakesFor(ctx context.Context, medicineID string) error {
	if err := f.err(); err != nil {
		return err
	}
	for id, intake := range f.intakes {
		if intake.MedicineID == medicineID {
			delete(f.intakes, id)
		}
	}
	return nil
}

func (f *fakePersister) GetProfile(ctx context.Context) (*Profile, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return f.profile, nil
}

func (f *fakePersister) PutProfile(ctx context.Context, p Profile) error {
	if err := f.err(); err != nil {
		return err
	}
	f.profile = &p
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 15, 9, 0, 0, 0, time.Local)
}

func setupTracker(t *testing.T) (*Tracker, *fakePersister) {
	t.Helper()
	persister := newFakePersister()
	tr := New(persister, zap.NewNop()).WithNow(fixedNow)
	return tr, persister
}

func validMedicine() Medicine {
	return Medicine{
		Name:      "Aspirin",
		Dosage:    "1 tablet",
		Frequency: "daily",
		Times:     []string{"08:00", "20:00"},
		StartDate: "2024-01-01",
	}
}

func TestTracker_AddMedicine(t *testing.T) {
	tr, persister := setupTracker(t)
	ctx := context.Background()

	med, err := tr.AddMedicine(ctx, validMedicine())
	require.NoError(t, err)
	assert.NotEmpty(t, med.ID)
	assert.Len(t, tr.Medicines(), 1)
	assert.Contains(t, persister.medicines, med.ID)
}

func TestTracker_AddMedicineValidation(t *testing.T) {
	tr, _ := setupTracker(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Medicine)
		want   error
	}{
		{"empty name", func(m *Medicine) { m.Name = "  " }, apperrors.ErrMedicineName},
		{"empty dosage", func(m *Medicine) { m.Dosage = "" }, apperrors.ErrMedicineDosage},
		{"no times", func(m *Medicine) { m.Times = []string{"", " "} }, apperrors.ErrMedicineTimes},
		{"bad time", func(m *Medicine) { m.Times = []string{"8am"} }, apperrors.ErrInvalidTime},
		{"bad start date", func(m *Medicine) { m.StartDate = "01/15/2024" }, apperrors.ErrInvalidDate},
		{"end before start", func(m *Medicine) { m.EndDate = strPtr("2023-12-31") }, apperrors.ErrMedicineDates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			med := validMedicine()
			tt.mutate(&med)
			_, err := tr.AddMedicine(ctx, med)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// Nothing partially applied.
	assert.Empty(t, tr.Medicines())
}

func TestTracker_UpdateMedicinePartial(t *testing.T) {
	tr, _ := setupTracker(t)
	ctx := context.Background()

	med, err := tr.AddMedicine(ctx, validMedicine())
	require.NoError(t, err)

	newDosage := "2 tablets"
	updated, err := tr.UpdateMedicine(ctx, med.ID, MedicineUpdate{Dosage: &newDosage})
	require.NoError(t, err)

	assert.Equal(t, "2 tablets", updated.Dosage)
	assert.Equal(t, "Aspirin", updated.Name) // untouched fields survive
	assert.Equal(t, []string{"08:00", "20:00"}, updated.Times)
}

func TestTracker_UpdateMedicineNotFound(t *testing.T) {
	tr, _ := setupTracker(t)

	_, err := tr.UpdateMedicine(context.Background(), "missing", MedicineUpdate{})
	assert.ErrorIs(t, err, apperrors.ErrMedicineNotFound)
}

func TestTracker_UpdateMedicineRejectsInvalidMerge(t *testing.T) {
	tr, _ := setupTracker(t)
	ctx := context.Background()

	med, err := tr.AddMedicine(ctx, validMedicine())
	require.NoError(t, err)

	empty := ""
	_, err = tr.UpdateMedicine(ctx, med.ID, MedicineUpdate{Name: &empty})
	assert.ErrorIs(t, err, apperrors.ErrMedicineName)

	// Original record untouched.
	current, err := tr.Medicine(med.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", current.Name)
}

func TestTracker_DeleteMedicineCascades(t *testing.T) {
	tr, persister := setupTracker(t)
	ctx := context.Background()

	med, err := tr.AddMedicine(ctx, validMedicine())
	require.NoError(t, err)

	_, err = tr.SetIntakeStatus(ctx, med.ID, "2024-01-15", "08:00", StatusTaken)
	require.NoError(t, err)

	require.NoError(t, tr.DeleteMedicine(ctx, med.ID))

	assert.Empty(t, tr.Medicines())
	assert.Nil(t, tr.FindIntake(med.ID, "2024-01-15", "08:00"))
	assert.Empty(t, persister.intakes)

	assert.ErrorIs(t, tr.DeleteMedicine(ctx, med.ID), apperrors.ErrMedicineNotFound)
}

func TestTracker_SetIntakeStatus(t *testing.T) {
	tr, _ := setupTracker(t)
	ctx := context.Background()

	med, err := tr.AddMedicine(ctx, validMedicine())
	require.NoError(t, err)

	intake, err := tr.SetIntakeStatus(ctx, med.ID, "2024-01-15", "08:00", StatusTaken)
	require.NoError(t, err)
	assert.Equal(t, StatusTaken, intake.Status)
	assert.Equal(t, fixedNow(), intake.Timestamp)

	// Upsert: same slot again stays one record.
	again, err := tr.SetIntakeStatus(ctx, med.ID, "2024-01-15", "08:00", StatusSkipped)
	require.NoError(t, err)
	assert.Equal(t, intake.ID, again.ID)
	assert.Len(t, tr.IntakesSince("2024-01-01"), 1)
}

func TestTracker_SetIntakeStatusValidation(t *testing.T) {
	tr, _ := setupTracker(t)
	ctx := context.Background()

	med, err := tr.AddMedicine(ctx, validMedicine())
	require.NoError(t, err)

	_, err = tr.SetIntakeStatus(ctx, med.ID, "2024-01-15", "08:00", Status("pending"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)

	_, err = tr.SetIntakeStatus(ctx, med.ID, "2024-01-15", "12:00", StatusTaken)
	assert.ErrorIs(t, err, apperrors.ErrUnscheduledTime)

	_, err = tr.SetIntakeStatus(ctx, "missing", "2024-01-15", "08:00", StatusTaken)
	assert.ErrorIs(t, err, apperrors.ErrMedicineNotFound)

	_, err = tr.SetIntakeStatus(ctx, med.ID, "15-01-2024", "08:00", StatusTaken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidDate)
}

func TestTracker_PersistenceFailureKeepsState(t *testing.T) {
	tr, persister := setupTracker(t)
	ctx := context.Background()

	persister.fail = true
	med, err := tr.AddMedicine(ctx, validMedicine())

	// Error surfaced but in-memory state not rolled back: degraded mode.
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrPersistence.Code, apperrors.GetCode(err))
	require.NotNil(t, med)
	assert.Len(t, tr.Medicines(), 1)

	_, err = tr.SetIntakeStatus(ctx, med.ID, "2024-01-15", "08:00", StatusTaken)
	require.Error(t, err)
	assert.NotNil(t, tr.FindIntake(med.ID, "2024-01-15", "08:00"))
}

func TestTracker_ScheduleResolvesAgainstNow(t *testing.T) {
	tr, _ := setupTracker(t) // now = 2024-01-15 09:00
	ctx := context.Background()

	_, err := tr.AddMedicine(ctx, validMedicine())
	require.NoError(t, err)

	schedule := tr.Schedule("2024-01-15")
	require.Len(t, schedule, 2)
	assert.Equal(t, StatusMissed, schedule[0].Status)  // 08:00 passed
	assert.Equal(t, StatusPending, schedule[1].Status) // 20:00 upcoming
}

func TestTracker_StoredTakenWinsAtDayEnd(t *testing.T) {
	persister := newFakePersister()
	tr := New(persister, zap.NewNop()).WithNow(func() time.Time {
		return time.Date(2024, 1, 15, 23, 0, 0, 0, time.Local)
	})
	ctx := context.Background()

	med, err := tr.AddMedicine(ctx, validMedicine())
	require.NoError(t, err)
	_, err = tr.SetIntakeStatus(ctx, med.ID, "2024-01-15", "08:00", StatusTaken)
	require.NoError(t, err)

	schedule := tr.Schedule("2024-01-15")
	assert.Equal(t, StatusTaken, schedule[0].Status)
}

func TestTracker_Report(t *testing.T) {
	tr, _ := setupTracker(t)
	ctx := context.Background()

	med, err := tr.AddMedicine(ctx, Medicine{
		Name: "Aspirin", Dosage: "1 tablet", Times: []string{"08:00", "20:00"},
		StartDate: "2024-01-13",
	})
	require.NoError(t, err)

	// Jan 13: both taken. Jan 14: one taken, one nothing (missed by inference).
	for _, tm := range []string{"08:00", "20:00"} {
		_, err = tr.SetIntakeStatus(ctx, med.ID, "2024-01-13", tm, StatusTaken)
		require.NoError(t, err)
	}
	_, err = tr.SetIntakeStatus(ctx, med.ID, "2024-01-14", "08:00", StatusTaken)
	require.NoError(t, err)

	report, err := tr.Report("2024-01-13", "2024-01-14", "")
	require.NoError(t, err)

	assert.Equal(t, 4, report.Stats.Total)
	assert.Equal(t, 3, report.Stats.Taken)
	assert.Equal(t, 1, report.Stats.Missed)
	assert.Equal(t, 75, report.Stats.AdherenceRate)

	require.Len(t, report.Days, 2)
	assert.Equal(t, 100, report.Days[0].AdherenceRate)
	assert.Equal(t, 50, report.Days[1].AdherenceRate)

	require.Len(t, report.Medicines, 1)
	assert.Equal(t, "Aspirin", report.Medicines[0].Name)

	_, err = tr.Report("bad", "2024-01-14", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidDate)
}

func TestTracker_ReportMedicineFilter(t *testing.T) {
	tr, _ := setupTracker(t)
	ctx := context.Background()

	m1, err := tr.AddMedicine(ctx, validMedicine())
	require.NoError(t, err)
	_, err = tr.AddMedicine(ctx, Medicine{
		Name: "Metformin", Dosage: "500mg", Times: []string{"12:00"}, StartDate: "2024-01-01",
	})
	require.NoError(t, err)

	report, err := tr.Report("2024-01-14", "2024-01-14", m1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Stats.Total)
	require.Len(t, report.Medicines, 1)
	assert.Equal(t, m1.ID, report.Medicines[0].MedicineID)
}

func TestTracker_ProfileRoundTrip(t *testing.T) {
	tr, persister := setupTracker(t)
	ctx := context.Background()

	p := Profile{Name: "Pat", Age: 72, CaregiverEmail: "care@example.com"}
	require.NoError(t, tr.SetProfile(ctx, p))

	got := tr.Profile()
	assert.Equal(t, "Pat", got.Name)
	assert.Equal(t, "care@example.com", got.CaregiverEmail)
	require.NotNil(t, persister.profile)
}

func TestTracker_Hydrate(t *testing.T) {
	persister := newFakePersister()
	persister.medicines["m1"] = Medicine{
		ID: "m1", Name: "Aspirin", Dosage: "1 tablet",
		Times: []string{"08:00"}, StartDate: "2024-01-01",
	}
	persister.intakes["i1"] = Intake{
		ID: "i1", MedicineID: "m1", Date: "2024-01-14", Time: "08:00", Status: StatusTaken,
	}
	persister.profile = &Profile{Name: "Pat"}

	tr := New(persister, zap.NewNop()).WithNow(fixedNow)
	require.NoError(t, tr.Hydrate(context.Background()))

	assert.Len(t, tr.Medicines(), 1)
	assert.NotNil(t, tr.FindIntake("m1", "2024-01-14", "08:00"))
	assert.Equal(t, "Pat", tr.Profile().Name)
}

func TestTracker_HydrateFailure(t *testing.T) {
	persister := newFakePersister()
	persister.fail = true

	tr := New(persister, zap.NewNop())
	err := tr.Hydrate(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrPersistence.Code, apperrors.GetCode(err))

	// Still usable, just empty.
	assert.Empty(t, tr.Medicines())
}

func TestTracker_Snapshot(t *testing.T) {
	tr, _ := setupTracker(t)
	ctx := context.Background()

	_, err := tr.AddMedicine(ctx, validMedicine())
	require.NoError(t, err)
	require.NoError(t, tr.SetProfile(ctx, Profile{Name: "Pat"}))

	medicines, profile := tr.Snapshot()
	require.Len(t, medicines, 1)
	assert.Equal(t, "Pat", profile.Name)

	// Snapshot is a copy: mutating it does not touch the tracker.
	medicines[0].Name = "changed"
	assert.Equal(t, "Aspirin", tr.Medicines()[0].Name)
}
