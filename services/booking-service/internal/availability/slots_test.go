package availability

import (
	"testing"
	"time"
)

func TestGenerateSlotsDefaultWindow(t *testing.T) {
	slots := GenerateSlots(DefaultWindow)
	if len(slots) != 20 {
		t.Fatalf("expected 20 slots, got %d", len(slots))
	}
	if slots[0] != "09:00" || slots[1] != "09:30" {
		t.Fatalf("unexpected first slots %v", slots[:2])
	}
	if last := slots[len(slots)-1]; last != "18:30" {
		t.Fatalf("expected last slot 18:30, got %s", last)
	}
}

func TestGenerateSlotsRejectsBadWindow(t *testing.T) {
	for _, w := range []Window{
		{StartHour: 9, EndHour: 19, StepMinutes: 0},
		{StartHour: 19, EndHour: 9, StepMinutes: 30},
		{StartHour: 9, EndHour: 25, StepMinutes: 30},
	} {
		if got := GenerateSlots(w); got != nil {
			t.Fatalf("expected nil for %+v, got %v", w, got)
		}
	}
}

func TestGenerateSlotsQuarterHour(t *testing.T) {
	slots := GenerateSlots(Window{StartHour: 9, EndHour: 10, StepMinutes: 15})
	want := []string{"09:00", "09:15", "09:30", "09:45"}
	if len(slots) != len(want) {
		t.Fatalf("expected %v, got %v", want, slots)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, slots)
		}
	}
}

func TestAvailable_RemovesBooked(t *testing.T) {
	now := time.Date(2026, 1, 27, 8, 0, 0, 0, time.UTC)
	slots := GenerateSlots(DefaultWindow)

	got := Available(slots, []string{"10:00", "10:30"}, "2026-01-28", now)
	if len(got) != 18 {
		t.Fatalf("expected 18 slots, got %d", len(got))
	}
	if Contains(got, "10:00") || Contains(got, "10:30") {
		t.Fatalf("booked slots still offered: %v", got)
	}
}

func TestAvailable_AllFreeWithoutBookings(t *testing.T) {
	now := time.Date(2026, 1, 27, 23, 0, 0, 0, time.UTC)
	got := Available(GenerateSlots(DefaultWindow), nil, "2026-01-28", now)
	if len(got) != 20 {
		t.Fatalf("expected all 20 slots, got %d", len(got))
	}
}

func TestAvailable_SkipsPastToday(t *testing.T) {
	now := time.Date(2026, 1, 28, 10, 30, 45, 0, time.UTC)
	got := Available(GenerateSlots(DefaultWindow), []string{"11:00"}, "2026-01-28", now)
	// 10:30 starts during the current minute and stays bookable.
	if len(got) == 0 || got[0] != "10:30" {
		t.Fatalf("expected first slot 10:30, got %v", got)
	}
	if Contains(got, "10:00") || Contains(got, "11:00") {
		t.Fatalf("unexpected slots %v", got)
	}
	if len(got) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(got))
	}
}

func TestAvailable_PastDate(t *testing.T) {
	now := time.Date(2026, 1, 28, 8, 0, 0, 0, time.UTC)
	got := Available(GenerateSlots(DefaultWindow), nil, "2026-01-27", now)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected an empty, non-nil list for a past date, got %#v", got)
	}
}

func TestAvailable_UsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	// 01:00 UTC on the 29th is still 22:00 on the 28th at UTC-3.
	now := time.Date(2026, 1, 29, 1, 0, 0, 0, time.UTC).In(loc)
	if got := Available(GenerateSlots(DefaultWindow), nil, "2026-01-28", now); len(got) != 0 {
		t.Fatalf("expected the day to be over, got %v", got)
	}
	if got := Available(GenerateSlots(DefaultWindow), nil, "2026-01-29", now); len(got) != 20 {
		t.Fatalf("expected tomorrow fully open, got %d", len(got))
	}
}

func TestValidDate(t *testing.T) {
	if !ValidDate("2026-02-28") || ValidDate("2026-02-30") || ValidDate("28/02/2026") {
		t.Fatal("ValidDate mismatch")
	}
}
