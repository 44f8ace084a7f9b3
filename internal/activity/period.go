// ABOUTME: Weekly period keys for activity counters
// ABOUTME: Keys are ISO-8601 weeks in a fixed timezone, formatted YYYY-Www

package activity

import (
	"fmt"
	"time"
)

// PeriodKey returns the ISO week containing t in loc, e.g. "2025-W03".
// Weeks start on Monday; the first week of a year contains its first Thursday.
func PeriodKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	year, week := t.In(loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
