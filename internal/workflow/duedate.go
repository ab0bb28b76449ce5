package workflow

import "time"

// DueDate returns a deadline days after now, landing at hour:00 on that day.
// When now is already at or past hour, one extra day is added so the window
// is never shorter than requested.
func DueDate(now time.Time, days, hour int) time.Time {
	if now.Hour() >= hour {
		days++
	}
	due := now.AddDate(0, 0, days)
	return time.Date(due.Year(), due.Month(), due.Day(), hour, 0, 0, 0, due.Location())
}
