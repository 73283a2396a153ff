package page

import (
	"strconv"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
	timeLayout     = "15:04:05"
)

// FormatSeconds renders d coarsely for humans: "45 s", "12 min",
// "3 h, 5 min" or "2 days". Fractions are truncated; negative durations are
// treated as zero.
func FormatSeconds(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	if secs < 60 {
		return strconv.FormatInt(secs, 10) + " s"
	}
	minutes := secs / 60
	if minutes < 60 {
		return strconv.FormatInt(minutes, 10) + " min"
	}
	hours := minutes / 60
	if hours < 24 {
		return strconv.FormatInt(hours, 10) + " h, " + strconv.FormatInt(minutes-hours*60, 10) + " min"
	}
	return strconv.FormatInt(hours/24, 10) + " days"
}

// FormatDate formats t as 2006-01-02.
func FormatDate(t time.Time) string { return t.Format(dateLayout) }

// FormatDateTime formats t as 2006-01-02 15:04:05.
func FormatDateTime(t time.Time) string { return t.Format(dateTimeLayout) }

// FormatTime formats t as 15:04:05.
func FormatTime(t time.Time) string { return t.Format(timeLayout) }
