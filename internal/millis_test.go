package internal

import (
	"testing"
	"time"
)

func TestMillisRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	if got := MillisToTime(TimeToMillis(now)); !got.Equal(now) {
		t.Fatalf("round trip = %v, want %v", got, now)
	}
}

func TestZeroTimeSurvivesRoundTrip(t *testing.T) {
	if TimeToMillis(time.Time{}) != 0 {
		t.Fatal("zero time must map to 0")
	}
	if !MillisToTime(0).IsZero() {
		t.Fatal("0 must map back to the zero time")
	}
}

func TestParseMillis(t *testing.T) {
	if got := ParseMillis("1700000000000"); got != 1700000000000 {
		t.Fatalf("got %d", got)
	}
	for _, bad := range []string{"", "abc", "-5", "1.5"} {
		if got := ParseMillis(bad); got != 0 {
			t.Fatalf("ParseMillis(%q) = %d, want 0", bad, got)
		}
	}
}

func TestFormatMillis(t *testing.T) {
	if got := FormatMillis(42); got != "42" {
		t.Fatalf("got %q", got)
	}
}
