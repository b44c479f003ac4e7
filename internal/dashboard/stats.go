package dashboard

import (
	"sort"
	"strings"
	"time"

	"visitorlog/internal/visitor"
)

// Stats are the overview counters shown above the log.
type Stats struct {
	Total     int `json:"total"`
	Today     int `json:"today"`
	CheckedIn int `json:"checkedIn"`
}

// Overview counts over the unfiltered record set.
func Overview(all []visitor.Record, now time.Time) Stats {
	var s Stats
	s.Total = len(all)
	for _, r := range all {
		if day, ok := r.ParseDate(now.Location()); ok && sameDay(day, now) {
			s.Today++
		}
		if r.CheckedIn() {
			s.CheckedIn++
		}
	}
	return s
}

// DayCount is one bar of the daily trend chart.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyTrend groups records by date, oldest first. Dates that do not parse
// are kept as their own groups after the valid ones.
func DailyTrend(records []visitor.Record) []DayCount {
	counts := map[string]int{}
	for _, r := range records {
		counts[r.Date]++
	}
	out := make([]DayCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DayCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, erri := time.Parse(visitor.DateLayout, out[i].Date)
		tj, errj := time.Parse(visitor.DateLayout, out[j].Date)
		switch {
		case erri == nil && errj == nil:
			return ti.Before(tj)
		case erri == nil:
			return true
		case errj == nil:
			return false
		}
		return out[i].Date < out[j].Date
	})
	return out
}

// PeakHours buckets records by the hour of TimeIn. Values without a valid
// leading hour are skipped.
func PeakHours(records []visitor.Record) [24]int {
	var bins [24]int
	for _, r := range records {
		if h, ok := leadingHour(r.TimeIn); ok {
			bins[h]++
		}
	}
	return bins
}

// leadingHour reads the decimal digits before the first ':', ignoring
// leading blanks.
func leadingHour(timeIn string) (int, bool) {
	timeIn = strings.TrimLeft(timeIn, " \t")
	h, digits := 0, 0
	for _, c := range timeIn {
		if c < '0' || c > '9' {
			break
		}
		h = h*10 + int(c-'0')
		digits++
		if digits > 2 {
			return 0, false
		}
	}
	if digits == 0 || h > 23 {
		return 0, false
	}
	return h, true
}

// Max returns the largest count, at least 1, for scaling chart bars.
func Max(values ...int) int {
	m := 1
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}
