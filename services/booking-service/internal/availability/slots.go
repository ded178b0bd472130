package availability

import (
	"fmt"
	"time"
)

const (
	DateFormat = "2006-01-02" // YYYY-MM-DD
	TimeFormat = "15:04"      // HH:MM
)

// Window is the bookable part of a day: [StartHour, EndHour) split into
// StepMinutes slots.
type Window struct {
	StartHour   int
	EndHour     int
	StepMinutes int
}

// DefaultWindow opens at 09:00 and takes its last booking at 18:30.
var DefaultWindow = Window{StartHour: 9, EndHour: 19, StepMinutes: 30}

func (w Window) Validate() error {
	if w.StepMinutes <= 0 || w.StepMinutes > 60 {
		return fmt.Errorf("slot step must be within 1..60 minutes (got %d)", w.StepMinutes)
	}
	if w.StartHour < 0 || w.EndHour > 24 || w.EndHour <= w.StartHour {
		return fmt.Errorf("invalid opening hours %d..%d", w.StartHour, w.EndHour)
	}
	return nil
}

// GenerateSlots returns the "HH:MM" label of every slot start in w, in order.
func GenerateSlots(w Window) []string {
	if w.Validate() != nil {
		return nil
	}
	var slots []string
	for h := w.StartHour; h < w.EndHour; h++ {
		for m := 0; m < 60; m += w.StepMinutes {
			slots = append(slots, fmt.Sprintf("%02d:%02d", h, m))
		}
	}
	return slots
}

// Available filters slots for date down to those not in booked and not yet
// past at now. date and now are compared on the wall clock of now's location
// using the DateFormat/TimeFormat strings, so a slot that starts during the
// current minute is still offered. The result is never nil.
func Available(slots, booked []string, date string, now time.Time) []string {
	today := now.Format(DateFormat)
	if date < today {
		return []string{}
	}

	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	current := ""
	if date == today {
		current = now.Format(TimeFormat)
	}

	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if current != "" && s < current {
			continue
		}
		if _, ok := taken[s]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Contains reports whether label is one of slots.
func Contains(slots []string, label string) bool {
	for _, s := range slots {
		if s == label {
			return true
		}
	}
	return false
}

// ValidDate reports whether s is a real calendar date in DateFormat.
func ValidDate(s string) bool {
	_, err := time.Parse(DateFormat, s)
	return err == nil
}
