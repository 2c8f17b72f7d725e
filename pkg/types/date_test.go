package types

import (
	"testing"
	"time"
)

func TestParseDateAcceptsISOAndLegacy(t *testing.T) {
	want := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"2025-03-07", "3/7/2025", " 03/07/2025 "} {
		got, err := ParseDate(raw)
		if err != nil {
			t.Fatalf("ParseDate(%q) error = %v", raw, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", raw, got, want)
		}
	}

	if _, err := ParseDate("07.03.2025"); err == nil {
		t.Fatal("expected unsupported layout to fail")
	}
}

func TestDateOfDropsClock(t *testing.T) {
	in := time.Date(2025, time.March, 7, 23, 59, 1, 5, time.UTC)
	got := DateOf(in)
	if got.Hour() != 0 || got.Minute() != 0 || got.Day() != 7 {
		t.Fatalf("unexpected truncation %v", got)
	}
	if FormatDate(got) != "2025-03-07" {
		t.Fatalf("unexpected format %q", FormatDate(got))
	}
}
