package domain

import "time"

// TimeLayout is the human-readable timestamp format used in stored records.
const TimeLayout = "2006-01-02 15:04:05"

// UnknownTime is rendered when no timestamp could be resolved.
const UnknownTime = "Unknown"

// FormatUnix renders a Unix timestamp (seconds) in UTC.
func FormatUnix(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(TimeLayout)
}

// FormatTime renders t in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FormatUnixPtr renders ts, or UnknownTime when nil.
func FormatUnixPtr(ts *int64) string {
	if ts == nil {
		return UnknownTime
	}
	return FormatUnix(*ts)
}
