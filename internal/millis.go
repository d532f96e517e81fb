package internal

import (
	"strconv"
	"time"
)

// TimeToMillis converts t to milliseconds since the Unix epoch. The zero time
// maps to 0 so that "absent" survives a round trip.
func TimeToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// MillisToTime is the inverse of TimeToMillis. 0 maps back to the zero time.
func MillisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// FormatMillis renders a millisecond timestamp in the persisted string form.
func FormatMillis(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

// ParseMillis parses the persisted string form. Malformed input is treated as
// absent rather than an error: persisted expirations are advisory only.
func ParseMillis(s string) int64 {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms < 0 {
		return 0
	}
	return ms
}
