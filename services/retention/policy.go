package retention

import "time"

// Fixed retention windows.
const (
	MediaTTL = 7 * 24 * time.Hour
	PostTTL  = 7 * 24 * time.Hour
)

// NextSunday returns the end of the next Sunday (23:59:59 UTC) strictly after
// the day of now. On a Sunday it returns the following week's Sunday.
func NextSunday(now time.Time) time.Time {
	now = now.UTC()
	days := (7 - int(now.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
}

// ExpiresAfter returns a pointer to from+ttl in UTC.
func ExpiresAfter(from time.Time, ttl time.Duration) *time.Time {
	t := from.UTC().Add(ttl)
	return &t
}
