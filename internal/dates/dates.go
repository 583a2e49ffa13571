// Package dates converts the calendar dates exchanged with the server into
// local day counts and classifies items by age and expiry.
//
// Dates travel as YYYY-MM-DD strings and are always read in the local time
// zone. Parsing them as UTC would shift the displayed day back by one for
// anyone west of Greenwich.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/freezer/internal/model"
)

// Classification thresholds, in days.
const (
	ExpiringSoonDays = 30
	OldestDays       = 180
)

// ParseLocal returns local midnight of the date in s. An empty string yields
// ok=false and no error. A full timestamp is accepted and truncated to its
// date part.
func ParseLocal(s string) (t time.Time, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	if len(s) > len(model.DateLayout) && s[len(model.DateLayout)] == 'T' {
		s = s[:len(model.DateLayout)]
	}
	t, err = time.ParseInLocation(model.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return t, true, nil
}

// Midnight returns local midnight of t's calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// DaysBetween returns the number of calendar days from start to end. It is
// positive when end is after start. Time of day is ignored and DST
// transitions do not change the count.
func DaysBetween(start, end time.Time) int {
	sy, sm, sd := start.In(time.Local).Date()
	ey, em, ed := end.In(time.Local).Date()
	// UTC has no DST, so whole days divide exactly.
	a := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Today returns the local calendar date of now as YYYY-MM-DD.
func Today(now time.Time) string {
	return Format(now)
}

// Format renders t's local calendar date as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.In(time.Local).Format(model.DateLayout)
}

// AddDays returns the local date n days after now as YYYY-MM-DD.
func AddDays(now time.Time, n int) string {
	y, m, d := now.In(time.Local).Date()
	return Format(time.Date(y, m, d+n, 0, 0, 0, 0, time.Local))
}

// DaysSince returns the days from the date in s to now. ok is false when s is
// empty or malformed.
func DaysSince(s string, now time.Time) (days int, ok bool) {
	t, ok, err := ParseLocal(s)
	if err != nil || !ok {
		return 0, false
	}
	return DaysBetween(t, now), true
}

// DaysUntil returns the days from now to the date in s, negative once the
// date has passed. ok is false when s is empty or malformed.
func DaysUntil(s string, now time.Time) (days int, ok bool) {
	t, ok, err := ParseLocal(s)
	if err != nil || !ok {
		return 0, false
	}
	return DaysBetween(now, t), true
}

// Age describes where an item stands relative to today.
type Age struct {
	DaysInFreezer int
	// DaysUntilExpiry is only meaningful when HasExpiration is set.
	DaysUntilExpiry int
	HasExpiration   bool

	ExpiringSoon bool
	Expired      bool
	Oldest       bool
}

// Classify computes the age of item as of now. Only items still in the
// freezer are classified; items without an expiration date never expire.
func Classify(item model.Item, now time.Time) Age {
	var a Age
	if days, ok := DaysSince(item.AddedDate, now); ok && days > 0 {
		a.DaysInFreezer = days
	}
	a.DaysUntilExpiry, a.HasExpiration = DaysUntil(item.ExpirationDate, now)

	if item.Status != model.ItemStatusInFreezer {
		return a
	}
	a.Oldest = a.DaysInFreezer > OldestDays
	if a.HasExpiration {
		a.Expired = a.DaysUntilExpiry < 0
		a.ExpiringSoon = a.DaysUntilExpiry >= 0 && a.DaysUntilExpiry <= ExpiringSoonDays
	}
	return a
}
