// Package catalog holds the shop's fixed roster of barbers and services.
package catalog

type Barber struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

var barbers = []Barber{
	{ID: "lucas", Name: "Lucas"},
	{ID: "martin", Name: "Martín"},
	{ID: "pedro", Name: "Pedro"},
	{ID: "santiago", Name: "Santiago"},
	{ID: "tomas", Name: "Tomás"},
	{ID: "gonzalo", Name: "Gonzalo"},
}

var services = []Service{
	{ID: "corte", Name: "Corte", DurationMinutes: 30},
	{ID: "barba", Name: "Barba", DurationMinutes: 30},
	{ID: "colorimetria", Name: "Colorimetría", DurationMinutes: 30},
	{ID: "lavado", Name: "Lavado", DurationMinutes: 30},
	{ID: "vip", Name: "VIP", DurationMinutes: 30},
	{ID: "peinado", Name: "Peinado", DurationMinutes: 30},
}

// Barbers returns the roster in display order.
func Barbers() []Barber {
	return append([]Barber(nil), barbers...)
}

// Services returns the service menu in display order.
func Services() []Service {
	return append([]Service(nil), services...)
}

func HasBarber(id string) bool {
	_, ok := findBarber(id)
	return ok
}

func HasService(id string) bool {
	_, ok := findService(id)
	return ok
}

// BarberName returns the display name for id, or id itself when unknown so
// bookings that outlive a roster change still render.
func BarberName(id string) string {
	if b, ok := findBarber(id); ok {
		return b.Name
	}
	return id
}

func ServiceName(id string) string {
	if s, ok := findService(id); ok {
		return s.Name
	}
	return id
}

func findBarber(id string) (Barber, bool) {
	for _, b := range barbers {
		if b.ID == id {
			return b, true
		}
	}
	return Barber{}, false
}

func findService(id string) (Service, bool) {
	for _, s := range services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}
