// internal/domain/date.go
package domain

import "time"

// DateLayout is the wire format of a civil date.
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t as observed in loc, as midnight UTC.
// Midnight UTC is what a PostgreSQL DATE column round-trips to.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate compares the year, month and day fields of two civil dates
// without converting either between zones.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
