// Package tracker implements the medicine-adherence engine: schedule
// expansion, the intake ledger, status resolution, and adherence statistics.
package tracker

import "time"

// Status classifies a scheduled dose.
type Status string

const (
	StatusTaken   Status = "taken"
	StatusSkipped Status = "skipped"
	StatusMissed  Status = "missed"
	StatusPending Status = "pending"
)

// Dates are YYYY-MM-DD and times HH:MM, both zero-padded so that
// lexicographic comparison matches chronological order.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Medicine is a prescribed medicine with a fixed daily time schedule.
type Medicine struct {
	ID           string   `json:"id" gorm:"primaryKey"`
	Name         string   `json:"name"`
	Dosage       string   `json:"dosage"`
	Frequency    string   `json:"frequency"` // descriptive label, not used for scheduling
	Times        []string `json:"times" gorm:"-"`
	TimesJSON    string   `json:"-" gorm:"type:text"`
	Instructions string   `json:"instructions,omitempty"`
	StartDate    string   `json:"start_date"`
	EndDate      *string  `json:"end_date,omitempty"` // inclusive; nil means open-ended

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MedicineUpdate is a partial update; nil fields are left unchanged.
type MedicineUpdate struct {
	Name         *string   `json:"name,omitempty"`
	Dosage       *string   `json:"dosage,omitempty"`
	Frequency    *string   `json:"frequency,omitempty"`
	Times        *[]string `json:"times,omitempty"`
	Instructions *string   `json:"instructions,omitempty"`
	StartDate    *string   `json:"start_date,omitempty"`
	EndDate      *string   `json:"end_date,omitempty"`
	ClearEndDate bool      `json:"clear_end_date,omitempty"`
}

// Intake records the latest status applied to one dose slot. At most one
// intake exists per (medicine, date, time); the ledger upserts, never appends.
type Intake struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	MedicineID string    `json:"medicine_id" gorm:"index:idx_slot,unique"`
	Date       string    `json:"date" gorm:"index:idx_slot,unique"`
	Time       string    `json:"time" gorm:"index:idx_slot,unique"`
	Status     Status    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// Profile is the singleton patient profile.
type Profile struct {
	ID               string `json:"-" gorm:"primaryKey"`
	Name             string `json:"name"`
	Age              int    `json:"age"`
	HealthCondition  string `json:"health_condition"`
	EmergencyContact string `json:"emergency_contact"`
	CaregiverEmail   string `json:"caregiver_email"`
	DoctorName       string `json:"doctor_name"`
	DoctorPhone      string `json:"doctor_phone"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Obligation is one (medicine, date, time) dose slot derived from the
// schedule. It is never persisted.
type Obligation struct {
	Medicine Medicine `json:"medicine"`
	Date     string   `json:"date"`
	Time     string   `json:"time"`
}

// ResolvedObligation pairs an obligation with its resolved status and the
// matching intake, if one was recorded.
type ResolvedObligation struct {
	Obligation
	Status Status  `json:"status"`
	Intake *Intake `json:"intake,omitempty"`
}

// SlotKey identifies a dose slot for ledger lookups and scheduler dedupe.
func SlotKey(medicineID, date, timeOfDay string) string {
	return medicineID + "|" + date + "|" + timeOfDay
}
