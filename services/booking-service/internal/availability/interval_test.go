package availability

import (
	"errors"
	"testing"
	"time"
)

func at(h, m int) time.Time {
	return time.Date(2026, 1, 28, h, m, 0, 0, time.UTC)
}

func TestNewInterval_RejectsEmptyAndInverted(t *testing.T) {
	if _, err := NewInterval(at(10, 0), at(10, 0)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for empty interval, got %v", err)
	}
	if _, err := NewInterval(at(11, 0), at(10, 0)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for inverted interval, got %v", err)
	}
}

func TestOverlaps_Symmetric(t *testing.T) {
	ivs := []Interval{
		{at(9, 0), at(10, 0)},
		{at(9, 30), at(10, 30)},
		{at(10, 0), at(10, 30)},
		{at(8, 0), at(12, 0)},
		{at(11, 0), at(11, 15)},
	}
	for _, a := range ivs {
		for _, b := range ivs {
			if a.Overlaps(b) != b.Overlaps(a) {
				t.Fatalf("overlap not symmetric for %v and %v", a, b)
			}
		}
	}
}

func TestOverlaps_TouchingBoundaryDoesNotOverlap(t *testing.T) {
	a := Interval{at(10, 0), at(10, 30)}
	b := Interval{at(10, 30), at(11, 0)}
	if a.Overlaps(b) {
		t.Fatal("[10:00,10:30) and [10:30,11:00) must not overlap")
	}
	if !a.Overlaps(Interval{at(10, 29), at(11, 0)}) {
		t.Fatal("expected overlap for one shared minute")
	}
}

func TestContains_HalfOpen(t *testing.T) {
	iv := Interval{at(10, 0), at(10, 30)}
	if !iv.Contains(at(10, 0)) {
		t.Fatal("start must be contained")
	}
	if iv.Contains(at(10, 30)) {
		t.Fatal("end must not be contained")
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.String() != "09:05" {
		t.Fatalf("expected 09:05, got %s", c)
	}
	if _, err := ParseClock("9am"); err == nil {
		t.Fatal("expected error for malformed time")
	}
}
