package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shriniketh555/medcare/internal/config"
	"github.com/shriniketh555/medcare/internal/tracker"
)

type nullPersister struct{}

func (nullPersister) ListMedicines(ctx context.Context) ([]tracker.Medicine, error) { return nil, nil }
func (nullPersister) PutMedicine(ctx context.Context, med tracker.Medicine) error   { return nil }
func (nullPersister) DeleteMedicine(ctx context.Context, id string) error           { return nil }
func (nullPersister) ListIntakes(ctx context.Context) ([]tracker.Intake, error)     { return nil, nil }
func (nullPersister) PutIntake(ctx context.Context, intake tracker.Intake) error    { return nil }
func (nullPersister) DeleteIntakesFor(ctx context.Context, medicineID string) error { return nil }
func (nullPersister) GetProfile(ctx context.Context) (*tracker.Profile, error)      { return nil, nil }
func (nullPersister) PutProfile(ctx context.Context, p tracker.Profile) error       { return nil }

func newTestServer(t *testing.T) (*Server, *tracker.Tracker) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.ReadTimeout = 30
	cfg.Server.WriteTimeout = 30
	trk := tracker.New(nullPersister{}, zap.NewNop())
	return New(cfg, trk, zap.NewNop()), trk
}

func doJSON(t *testing.T, s *Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	resp := doJSON(t, s, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAddAndGetMedicine(t *testing.T) {
	s, _ := newTestServer(t)

	resp := doJSON(t, s, "POST", "/api/medicines",
		`{"name":"Aspirin","dosage":"100mg","times":["08:00","20:00"],"start_date":"2024-01-01"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var med tracker.Medicine
	decode(t, resp, &med)
	assert.NotEmpty(t, med.ID)
	assert.Equal(t, []string{"08:00", "20:00"}, med.Times)

	resp = doJSON(t, s, "GET", "/api/medicines/"+med.ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAddMedicineValidation(t *testing.T) {
	s, _ := newTestServer(t)

	resp := doJSON(t, s, "POST", "/api/medicines",
		`{"name":"","dosage":"100mg","times":["08:00"],"start_date":"2024-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "VAL_001", body["code"])
}

func TestGetMedicineNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	resp := doJSON(t, s, "GET", "/api/medicines/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecordIntakeAndSchedule(t *testing.T) {
	s, trk := newTestServer(t)

	med, err := trk.AddMedicine(context.Background(), tracker.Medicine{
		Name:      "Aspirin",
		Dosage:    "100mg",
		Times:     []string{"08:00"},
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)

	resp := doJSON(t, s, "POST", "/api/intakes",
		`{"medicine_id":"`+med.ID+`","date":"2024-01-15","time":"08:00","status":"taken"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var intake tracker.Intake
	decode(t, resp, &intake)
	assert.Equal(t, tracker.StatusTaken, intake.Status)

	resp = doJSON(t, s, "GET", "/api/schedule?date=2024-01-15", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var schedule []tracker.ResolvedObligation
	decode(t, resp, &schedule)
	require.Len(t, schedule, 1)
	assert.Equal(t, tracker.StatusTaken, schedule[0].Status)

	resp = doJSON(t, s, "GET", "/api/schedule?date=2024-01-15&status=pending", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &schedule)
	assert.Empty(t, schedule)
}

func TestRecordIntakeUnscheduledTime(t *testing.T) {
	s, trk := newTestServer(t)

	med, err := trk.AddMedicine(context.Background(), tracker.Medicine{
		Name:      "Aspirin",
		Dosage:    "100mg",
		Times:     []string{"08:00"},
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)

	resp := doJSON(t, s, "POST", "/api/intakes",
		`{"medicine_id":"`+med.ID+`","date":"2024-01-15","time":"09:30","status":"taken"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProfileRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	resp := doJSON(t, s, "PUT", "/api/profile",
		`{"name":"John","caregiver_email":"care@example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, "GET", "/api/profile", "")
	var profile tracker.Profile
	decode(t, resp, &profile)
	assert.Equal(t, "John", profile.Name)
	assert.Equal(t, "care@example.com", profile.CaregiverEmail)
}

func TestExportCSV(t *testing.T) {
	s, trk := newTestServer(t)

	med, err := trk.AddMedicine(context.Background(), tracker.Medicine{
		Name:      "Aspirin",
		Dosage:    "100mg",
		Times:     []string{"08:00"},
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)
	_, err = trk.SetIntakeStatus(context.Background(), med.ID, "2024-01-15", "08:00", tracker.StatusTaken)
	require.NoError(t, err)

	resp := doJSON(t, s, "GET", "/api/export.csv", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Date,Medicine,Time,Status,Dosage\n2024-01-15,Aspirin,08:00,taken,100mg\n", string(body))
}

func TestReportEndpoint(t *testing.T) {
	s, trk := newTestServer(t)

	_, err := trk.AddMedicine(context.Background(), tracker.Medicine{
		Name:      "Aspirin",
		Dosage:    "100mg",
		Times:     []string{"08:00"},
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)

	resp := doJSON(t, s, "GET", "/api/report?start=2024-01-08&end=2024-01-14", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report tracker.Report
	decode(t, resp, &report)
	assert.Equal(t, 7, report.Stats.Total)

	resp = doJSON(t, s, "GET", "/api/report?start=bogus&end=2024-01-14", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
