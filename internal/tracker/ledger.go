package tracker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ledger is the in-memory intake log. Upsert is the only mutation path: one
// row per (medicine, date, time) slot, last write wins.
type Ledger struct {
	mu      sync.RWMutex
	bySlot  map[string]*Intake
	ordered []string // slot keys in insertion order, for stable listings
}

func NewLedger() *Ledger {
	return &Ledger{
		bySlot: make(map[string]*Intake),
	}
}

// Find returns the intake recorded for the slot, or nil.
func (l *Ledger) Find(medicineID, date, timeOfDay string) *Intake {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if intake, ok := l.bySlot[SlotKey(medicineID, date, timeOfDay)]; ok {
		copied := *intake
		return &copied
	}
	return nil
}

// Upsert creates or overwrites the slot's intake. The timestamp is always the
// instant of this call; the ledger keeps only the latest write.
func (l *Ledger) Upsert(medicineID, date, timeOfDay string, status Status, now time.Time) *Intake {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := SlotKey(medicineID, date, timeOfDay)
	if existing, ok := l.bySlot[key]; ok {
		existing.Status = status
		existing.Timestamp = now
		copied := *existing
		return &copied
	}

	intake := &Intake{
		ID:         uuid.NewString(),
		MedicineID: medicineID,
		Date:       date,
		Time:       timeOfDay,
		Status:     status,
		Timestamp:  now,
	}
	l.bySlot[key] = intake
	l.ordered = append(l.ordered, key)
	copied := *intake
	return &copied
}

// Load inserts a persisted intake during hydration without touching its
// timestamp. Later rows for the same slot replace earlier ones.
func (l *Ledger) Load(intake Intake) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := SlotKey(intake.MedicineID, intake.Date, intake.Time)
	if _, ok := l.bySlot[key]; !ok {
		l.ordered = append(l.ordered, key)
	}
	copied := intake
	l.bySlot[key] = &copied
}

// RemoveAllFor deletes every intake referencing the medicine and returns how
// many were removed. Supports the cascading medicine delete.
func (l *Ledger) RemoveAllFor(medicineID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	kept := l.ordered[:0]
	for _, key := range l.ordered {
		intake := l.bySlot[key]
		if intake != nil && intake.MedicineID == medicineID {
			delete(l.bySlot, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	l.ordered = kept
	return removed
}

// ListSince returns copies of all intakes on or after date, in insertion order.
func (l *Ledger) ListSince(date string) []Intake {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Intake
	for _, key := range l.ordered {
		if intake := l.bySlot[key]; intake != nil && intake.Date >= date {
			out = append(out, *intake)
		}
	}
	return out
}

// List returns copies of all intakes in insertion order.
func (l *Ledger) List() []Intake {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Intake, 0, len(l.ordered))
	for _, key := range l.ordered {
		if intake := l.bySlot[key]; intake != nil {
			out = append(out, *intake)
		}
	}
	return out
}

// Len returns the number of recorded intakes.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.bySlot)
}
