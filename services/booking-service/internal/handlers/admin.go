package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barbershop/libs/metrics"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/adminauth"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/export"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/model"
)

type AdminHandler struct {
	svc     *booking.Service
	auth    *adminauth.Authenticator
	metrics *metrics.BookingMetrics
	logger  *slog.Logger
}

func NewAdminHandler(svc *booking.Service, authn *adminauth.Authenticator, m *metrics.BookingMetrics, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, auth: authn, metrics: m, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

type adminBookingItem struct {
	ID          string `json:"id"`
	BarberID    string `json:"barber_id"`
	BarberName  string `json:"barber_name"`
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	CreatedAt   string `json:"created_at"`
}

type adminBookingsResponse struct {
	Bookings []adminBookingItem `json:"bookings"`
	Count    int                `json:"count"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	token, claims, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, adminauth.ErrInvalidCredentials) {
			h.logger.Warn("admin login rejected", "username", strings.TrimSpace(req.Username))
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.Error("admin login failed", "err", err)
		http.Error(w, "failed to issue session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   claims.ExpiresAt().UTC().Format(time.RFC3339),
	})
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bookings, err := h.svc.List(r.Context(), filterFromQuery(r))
	if err != nil {
		h.logger.Error("list bookings failed", "err", err)
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	items := make([]adminBookingItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, adminBookingItem{
			ID:          b.ID,
			BarberID:    b.BarberID,
			BarberName:  catalog.BarberName(b.BarberID),
			ServiceID:   b.ServiceID,
			ServiceName: catalog.ServiceName(b.ServiceID),
			Date:        b.Date,
			Time:        b.Time,
			FirstName:   b.FirstName,
			LastName:    b.LastName,
			Phone:       b.Phone,
			Email:       b.Email,
			CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, adminBookingsResponse{Bookings: items, Count: len(items)})
}

func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := filterFromQuery(r)
	bookings, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("export bookings failed", "err", err)
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, bookings); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to render csv", http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveExport()

	name := export.FileName(h.svc.Today(), filter)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func filterFromQuery(r *http.Request) model.Filter {
	q := r.URL.Query()
	return model.Filter{
		Date:     strings.TrimSpace(q.Get("date")),
		BarberID: strings.TrimSpace(q.Get("barber_id")),
	}
}
