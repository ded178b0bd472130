package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/model"
)

type BookingHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewBookingHandler(svc *booking.Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type catalogResponse struct {
	Barbers  []catalog.Barber  `json:"barbers"`
	Services []catalog.Service `json:"services"`
	Slots    []string          `json:"slots"`
	Today    string            `json:"today"`
}

type slotsResponse struct {
	Slots []string `json:"slots"`
}

type createBookingResponse struct {
	Booking model.Booking `json:"booking"`
	Message string        `json:"message"`
}

type slotTakenResponse struct {
	Error string   `json:"error"`
	Slots []string `json:"slots"`
}

func (h *BookingHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{
		Barbers:  catalog.Barbers(),
		Services: catalog.Services(),
		Slots:    h.svc.AllSlots(),
		Today:    h.svc.Today(),
	})
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	barberID := strings.TrimSpace(r.URL.Query().Get("barber_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))

	slots, err := h.svc.Slots(r.Context(), barberID, date)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrUnknownBarber), errors.Is(err, booking.ErrInvalidDate):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("slots lookup failed", "err", err)
			http.Error(w, "failed to load slots", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{Slots: slots})
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req booking.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	b, err := h.svc.Create(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrSlotTaken):
			// The visitor gets the refreshed grid so the form can re-render.
			slots, slotsErr := h.svc.Slots(ctx, req.BarberID, req.Date)
			if slotsErr != nil {
				slots = []string{}
			}
			writeJSON(w, http.StatusConflict, slotTakenResponse{
				Error: "that slot was just taken, please pick another",
				Slots: slots,
			})
		case errors.Is(err, booking.ErrPastDate), errors.Is(err, booking.ErrPastTime):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case isValidationError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("create booking failed", "err", err)
			http.Error(w, "failed to create booking", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, createBookingResponse{
		Booking: b,
		Message: "booking confirmed",
	})
}

func isValidationError(err error) bool {
	for _, target := range []error{
		booking.ErrMissingFields,
		booking.ErrInvalidEmail,
		booking.ErrUnknownBarber,
		booking.ErrUnknownService,
		booking.ErrInvalidDate,
		booking.ErrInvalidTime,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
