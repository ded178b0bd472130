package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BookingMetrics exposes counters for the booking and admin flows.
// A nil *BookingMetrics is valid and records nothing.
type BookingMetrics struct {
	bookingsCreated   *prometheus.CounterVec
	bookingsRejected  *prometheus.CounterVec
	slotQueries       prometheus.Counter
	adminLogins       *prometheus.CounterVec
	exportsGenerated  prometheus.Counter
	eventPublishTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barbershop",
			Subsystem: "booking",
			Name:      "created_total",
			Help:      "Bookings stored, by barber",
		}, []string{"barber"}),
		bookingsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barbershop",
			Subsystem: "booking",
			Name:      "rejected_total",
			Help:      "Booking requests rejected, by reason",
		}, []string{"reason"}),
		slotQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "barbershop",
			Subsystem: "booking",
			Name:      "slot_queries_total",
			Help:      "Availability lookups served",
		}),
		adminLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barbershop",
			Subsystem: "admin",
			Name:      "logins_total",
			Help:      "Admin login attempts, by result",
		}, []string{"result"}),
		exportsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "barbershop",
			Subsystem: "admin",
			Name:      "csv_exports_total",
			Help:      "CSV exports generated",
		}),
		eventPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barbershop",
			Subsystem: "events",
			Name:      "publish_total",
			Help:      "Booking events handed to the broker, by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsCreated, m.bookingsRejected, m.slotQueries, m.adminLogins, m.exportsGenerated, m.eventPublishTotal)
	return m
}

func (m *BookingMetrics) ObserveCreated(barberID string) {
	if m == nil {
		return
	}
	m.bookingsCreated.WithLabelValues(barberID).Inc()
}

func (m *BookingMetrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.bookingsRejected.WithLabelValues(reason).Inc()
}

func (m *BookingMetrics) ObserveSlotQuery() {
	if m == nil {
		return
	}
	m.slotQueries.Inc()
}

func (m *BookingMetrics) ObserveLogin(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.adminLogins.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveExport() {
	if m == nil {
		return
	}
	m.exportsGenerated.Inc()
}

func (m *BookingMetrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.eventPublishTotal.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
