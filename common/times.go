package common

import "time"

// Layouts used when rendering values for change summaries.
const (
	LastUpdateLayout = "02-01-06 15:04"
	DateLayout       = "2006-01-02"
	DateTimeLayout   = "2006-01-02 15:04:05"
)

// WatermarkSentinel is the read watermark used for users who have never viewed an inbox.
var WatermarkSentinel = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Watermark returns the given watermark, or WatermarkSentinel if it has never been set.
func Watermark(readTime *time.Time) time.Time {
	if readTime == nil || readTime.IsZero() {
		return WatermarkSentinel
	}
	return *readTime
}

// FormatLastUpdate formats a last-update timestamp as day-month-year hour:minute.
func FormatLastUpdate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(LastUpdateLayout)
}

// FormatDate formats a calendar date. The zero time formats as an empty string.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// FormatDateTime formats a timestamp to second precision. The zero time formats as an empty string.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateTimeLayout)
}

// DaysUntil returns the number of whole days from today until deadline. Only the calendar dates are compared.
func DaysUntil(deadline, today time.Time) int {
	d := time.Date(deadline.Year(), deadline.Month(), deadline.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(t).Hours() / 24)
}
