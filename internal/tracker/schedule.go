package tracker

import (
	"sort"
	"strings"
)

// Expand turns the medicine set into the flat, time-ordered dose schedule for
// one calendar date. A medicine contributes only when its validity window
// covers the date; blank time entries are skipped. Pure function: callers pass
// the date explicitly so past and future dates expand identically to today.
func Expand(medicines []Medicine, date string) []Obligation {
	var obligations []Obligation
	for _, med := range medicines {
		if !covers(med, date) {
			continue
		}
		for _, t := range med.Times {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			obligations = append(obligations, Obligation{
				Medicine: med,
				Date:     date,
				Time:     t,
			})
		}
	}
	// Stable: ties keep the relative order of the medicines slice.
	sort.SliceStable(obligations, func(i, j int) bool {
		return obligations[i].Time < obligations[j].Time
	})
	return obligations
}

// covers reports whether date falls inside the medicine's validity window.
// EndDate is inclusive; nil means open-ended.
func covers(med Medicine, date string) bool {
	if med.StartDate > date {
		return false
	}
	if med.EndDate != nil && *med.EndDate < date {
		return false
	}
	return true
}

// ScheduledAt reports whether timeOfDay is one of the medicine's dose times.
func ScheduledAt(med Medicine, timeOfDay string) bool {
	for _, t := range med.Times {
		if strings.TrimSpace(t) == timeOfDay {
			return true
		}
	}
	return false
}
