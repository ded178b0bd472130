package model

import (
	"sort"
	"time"
)

// Booking is one reserved slot. Date and Time are wall-clock strings in the
// shop's location ("2006-01-02", "15:04").
type Booking struct {
	ID        string    `json:"id"`
	BarberID  string    `json:"barber_id"`
	ServiceID string    `json:"service_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SlotKey identifies the (barber, date, time) triple a booking occupies.
func (b Booking) SlotKey() string {
	return b.BarberID + "|" + b.Date + "|" + b.Time
}

// Filter narrows the admin listing. Empty fields match everything.
type Filter struct {
	Date     string
	BarberID string
}

func (f Filter) Match(b Booking) bool {
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	if f.BarberID != "" && b.BarberID != f.BarberID {
		return false
	}
	return true
}

// Apply returns the bookings matching f ordered by date and time.
func (f Filter) Apply(bookings []Booking) []Booking {
	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	SortByDateTime(out)
	return out
}

// SortByDateTime orders bookings by Date then Time; ties keep insertion order.
func SortByDateTime(bookings []Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].Date+"T"+bookings[i].Time < bookings[j].Date+"T"+bookings[j].Time
	})
}
