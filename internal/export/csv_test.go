package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shriniketh555/medcare/internal/tracker"
)

func TestWriteCSV(t *testing.T) {
	medicines := []tracker.Medicine{
		{ID: "med-1", Name: "Aspirin", Dosage: "100mg"},
	}
	intakes := []tracker.Intake{
		{MedicineID: "med-1", Date: "2024-01-15", Time: "08:00", Status: tracker.StatusTaken},
		{MedicineID: "med-gone", Date: "2024-01-15", Time: "12:00", Status: tracker.StatusSkipped},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, intakes, medicines))

	want := "Date,Medicine,Time,Status,Dosage\n" +
		"2024-01-15,Aspirin,08:00,taken,100mg\n" +
		"2024-01-15,Unknown,12:00,skipped,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVEmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, nil))
	assert.Equal(t, "Date,Medicine,Time,Status,Dosage\n", buf.String())
}
