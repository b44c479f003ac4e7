// Package dashboard derives the admin views of the visitor log: filtering,
// overview stats, charts and exports. Every function is pure; "now" is
// always passed in.
package dashboard

import (
	"sort"
	"strings"
	"time"

	"visitorlog/internal/visitor"
)

// Status filter values.
const (
	StatusAll        = "all"
	StatusCheckedIn  = "checked-in"
	StatusCheckedOut = "checked-out"
)

// Date range filter values.
const (
	RangeAll    = "all"
	RangeToday  = "today"
	Range7Days  = "7days"
	Range30Days = "30days"
)

// Filter is the conjunction of the three dashboard inputs.
type Filter struct {
	Search    string `form:"q" json:"q"`
	Status    string `form:"status" json:"status"`
	DateRange string `form:"range" json:"range"`
}

// Normalized maps aliases to canonical values and unknown values to all.
func (f Filter) Normalized() Filter {
	f.Search = strings.TrimSpace(f.Search)
	switch f.Status {
	case StatusCheckedIn, StatusCheckedOut:
	default:
		f.Status = StatusAll
	}
	switch f.DateRange {
	case RangeToday, Range7Days, Range30Days:
	case "last-7-days":
		f.DateRange = Range7Days
	case "last-30-days":
		f.DateRange = Range30Days
	default:
		f.DateRange = RangeAll
	}
	return f
}

// Apply returns the records matching f, in input order. The input is not
// modified.
func Apply(records []visitor.Record, f Filter, now time.Time) []visitor.Record {
	f = f.Normalized()
	needle := strings.ToLower(f.Search)
	out := make([]visitor.Record, 0, len(records))
	for _, r := range records {
		if matchSearch(r, needle) && matchStatus(r, f.Status) && matchRange(r, f.DateRange, now) {
			out = append(out, r)
		}
	}
	return out
}

func matchSearch(r visitor.Record, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.FullName()), needle) ||
		strings.Contains(strings.ToLower(r.Company), needle)
}

func matchStatus(r visitor.Record, status string) bool {
	switch status {
	case StatusCheckedIn:
		return r.CheckedIn()
	case StatusCheckedOut:
		return !r.CheckedIn()
	}
	return true
}

func matchRange(r visitor.Record, dateRange string, now time.Time) bool {
	if dateRange == RangeAll {
		return true
	}
	day, ok := r.ParseDate(now.Location())
	if !ok {
		return false
	}
	switch dateRange {
	case RangeToday:
		return sameDay(day, now)
	case Range7Days:
		return within(day, now.AddDate(0, 0, -7), now)
	case Range30Days:
		return within(day, now.AddDate(0, 0, -30), now)
	}
	return false
}

func sameDay(a, b time.Time) bool {
	return a.Format(visitor.DateLayout) == b.Format(visitor.DateLayout)
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// SortByDateDesc returns a copy of records ordered newest date first.
// Records on the same date keep their relative order; unparsable dates sort
// last.
func SortByDateDesc(records []visitor.Record, loc *time.Location) []visitor.Record {
	out := make([]visitor.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		di, oki := out[i].ParseDate(loc)
		dj, okj := out[j].ParseDate(loc)
		if !oki || !okj {
			return oki && !okj
		}
		return di.After(dj)
	})
	return out
}
