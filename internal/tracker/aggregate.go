package tracker

import (
	"math"
	"sort"
)

// Stats are aggregate adherence counters over a set of resolved obligations.
type Stats struct {
	Total         int `json:"total"`
	Taken         int `json:"taken"`
	Skipped       int `json:"skipped"`
	Missed        int `json:"missed"`
	AdherenceRate int `json:"adherence_rate"` // whole percent, round half up
}

// DayStats is the per-day adherence breakdown entry.
type DayStats struct {
	Date string `json:"date"`
	Stats
}

// MedicineStats is the per-medicine adherence breakdown entry.
type MedicineStats struct {
	MedicineID    string `json:"medicine_id"`
	Name          string `json:"name"`
	Taken         int    `json:"taken"`
	Total         int    `json:"total"`
	AdherenceRate int    `json:"adherence_rate"`
}

// Aggregate computes overall adherence over a pre-resolved, pre-filtered set.
func Aggregate(items []ResolvedObligation) Stats {
	var s Stats
	for _, item := range items {
		s.Total++
		switch item.Status {
		case StatusTaken:
			s.Taken++
		case StatusSkipped:
			s.Skipped++
		case StatusMissed:
			s.Missed++
		}
	}
	s.AdherenceRate = adherencePct(s.Taken, s.Total)
	return s
}

// AggregateByDay groups by date and computes per-day stats, sorted ascending.
func AggregateByDay(items []ResolvedObligation) []DayStats {
	byDate := make(map[string][]ResolvedObligation)
	for _, item := range items {
		byDate[item.Date] = append(byDate[item.Date], item)
	}

	days := make([]DayStats, 0, len(byDate))
	for date, subset := range byDate {
		days = append(days, DayStats{Date: date, Stats: Aggregate(subset)})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// AggregateByMedicine groups by medicine. Medicines with no obligations in the
// input are absent, not zero-filled.
func AggregateByMedicine(items []ResolvedObligation) []MedicineStats {
	byMed := make(map[string]*MedicineStats)
	var order []string
	for _, item := range items {
		id := item.Medicine.ID
		entry, ok := byMed[id]
		if !ok {
			entry = &MedicineStats{MedicineID: id, Name: item.Medicine.Name}
			byMed[id] = entry
			order = append(order, id)
		}
		entry.Total++
		if item.Status == StatusTaken {
			entry.Taken++
		}
	}

	out := make([]MedicineStats, 0, len(order))
	for _, id := range order {
		entry := byMed[id]
		entry.AdherenceRate = adherencePct(entry.Taken, entry.Total)
		out = append(out, *entry)
	}
	return out
}

// adherencePct rounds half up to the nearest whole percent; zero total yields
// zero rather than a division error. 2/3 -> 67, 1/3 -> 33.
func adherencePct(taken, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(taken) / float64(total) * 100))
}
