package core

import "time"

// ReferenceZone is the fixed UTC+5:30 timezone used for every day and
// month boundary in the app. The product targets Indian users; boundaries
// are a business rule, not the server's local time.
var ReferenceZone = time.FixedZone("IST", 5*3600+30*60)

// MonthBounds returns the [start, end) of the calendar month containing
// asOf in the reference timezone.
func MonthBounds(asOf time.Time) (time.Time, time.Time) {
	t := asOf.In(ReferenceZone)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, ReferenceZone)
	return start, start.AddDate(0, 1, 0)
}

// DayBounds returns the [start, end) of the calendar day containing asOf
// in the reference timezone.
func DayBounds(asOf time.Time) (time.Time, time.Time) {
	t := asOf.In(ReferenceZone)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ReferenceZone)
	return start, start.AddDate(0, 0, 1)
}

// LocalDate formats asOf as a YYYY-MM-DD date in the reference timezone.
func LocalDate(asOf time.Time) string {
	return asOf.In(ReferenceZone).Format("2006-01-02")
}

// LocalMonth formats asOf as a YYYY-MM month in the reference timezone.
func LocalMonth(asOf time.Time) string {
	return asOf.In(ReferenceZone).Format("2006-01")
}

// PeriodKey is the deduplication key for a notification kind at a given
// time: the calendar day for daily_limit, the calendar month for the
// budget thresholds. One fired record per (user, kind, key) is enforced
// by a unique index.
func PeriodKey(kind NotificationKind, asOf time.Time) string {
	t := asOf.In(ReferenceZone)
	if kind == KindDailyLimit {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01")
}

// PeriodStart returns the start of the deduplication period for kind.
func PeriodStart(kind NotificationKind, asOf time.Time) time.Time {
	if kind == KindDailyLimit {
		start, _ := DayBounds(asOf)
		return start
	}
	start, _ := MonthBounds(asOf)
	return start
}
