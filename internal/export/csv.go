// Package export renders the intake ledger for sharing with a doctor or
// caregiver.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shriniketh555/medcare/internal/tracker"
)

var csvHeader = []string{"Date", "Medicine", "Time", "Status", "Dosage"}

// WriteCSV writes the intake history as CSV, one row per recorded intake in
// ledger order. Intakes whose medicine was deleted keep their row with an
// "Unknown" medicine name so the history stays complete.
func WriteCSV(w io.Writer, intakes []tracker.Intake, medicines []tracker.Medicine) error {
	byID := make(map[string]tracker.Medicine, len(medicines))
	for _, med := range medicines {
		byID[med.ID] = med
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, intake := range intakes {
		name := "Unknown"
		dosage := ""
		if med, ok := byID[intake.MedicineID]; ok {
			name = med.Name
			dosage = med.Dosage
		}
		row := []string{intake.Date, name, intake.Time, string(intake.Status), dosage}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
