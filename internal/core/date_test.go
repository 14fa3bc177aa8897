package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-01-15", "2024-01-15T00:00:00Z", "1/15/2024", "01-15-24", "45306"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: got %v want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "yesterday", "0", "-4", "2024", "1e7", "2958466", "NaN"} {
		if got, err := ParseDate(in); err == nil {
			t.Fatalf("%q: expected error, got %v", in, got)
		}
	}

	last, err := ParseDate("2958465")
	if err != nil || !last.Equal(time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("largest serial: got %v, %v", last, err)
	}
}
