package httpapi

import (
	"errors"
	"net/http"
	"time"

	"eline/internal/analytics"
	"eline/internal/auth"
	"eline/internal/store"

	"github.com/shopspring/decimal"
)

type barberLoginRequest struct {
	BarberCode string `json:"barberCode" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type barberSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BarberCode string `json:"barberCode"`
	Email      string `json:"email"`
}

type barberLoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Business  barberSummary `json:"business"`
}

type serviceOffer struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Price       decimal.Decimal `json:"price"`
	Duration    int             `json:"duration" validate:"gte=1,lte=600"`
	Description string          `json:"description,omitempty"`
	Icon        string          `json:"icon,omitempty"`
}

type updateServicesRequest struct {
	ServicesData []serviceOffer `json:"servicesData" validate:"dive"`
}

type updateServicesResponse struct {
	Success  bool        `json:"success"`
	Services interface{} `json:"services"`
}

type clearHistoryResponse struct {
	Success bool  `json:"success"`
	Count   int64 `json:"count"`
}

// Defaults for services a barber adds from the standard catalogue.
var (
	serviceIcons = map[string]string{
		"Haircut (Men)":      "✂️",
		"Haircut (Women)":    "✂️",
		"Beard Trim":         "🧔",
		"Hair Spa":           "💆",
		"Facial (Basic)":     "😊",
		"Waxing (Arms/Legs)": "✨",
	}
	serviceDescriptions = map[string]string{
		"Haircut (Men)":      "Professional men's haircut with styling",
		"Haircut (Women)":    "Basic women's haircut with styling",
		"Beard Trim":         "Beard shaping and trimming",
		"Hair Spa":           "Relaxing hair spa treatment",
		"Facial (Basic)":     "Basic facial treatment",
		"Waxing (Arms/Legs)": "Arms and legs waxing service",
	}
)

const defaultServiceIcon = "✂️"

func (h *Handler) handleBarberLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req barberLoginRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	session, err := h.auth.LoginBarber(r.Context(), req.BarberCode, req.Password)
	switch {
	case errors.Is(err, auth.ErrUnknownBarberCode):
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "invalid_credentials", "Invalid barber code")
		return
	case errors.Is(err, auth.ErrWrongPassword):
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "invalid_credentials", "Invalid password")
		return
	case errors.Is(err, auth.ErrShopInactive):
		writeError(w, requestIDFromRequest(r), http.StatusForbidden, "shop_inactive", "Shop is not active")
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}

	b := session.Business
	writeJSON(w, http.StatusOK, barberLoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Business:  barberSummary{ID: b.ID, Name: b.Name, BarberCode: b.BarberCode, Email: b.Email},
	})
}

// handleBarberServices lists or replaces the offering of the caller's shop.
// The business always comes from the token, never from the request.
func (h *Handler) handleBarberServices(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireBarber(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		services, err := h.directory.ListServices(r.Context(), businessID, false)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(services))
	case http.MethodPost:
		var req updateServicesRequest
		if !h.decodeRequest(w, r, &req) {
			return
		}
		inputs := make([]store.ServiceInput, 0, len(req.ServicesData))
		for _, offer := range req.ServicesData {
			if offer.Price.IsNegative() {
				writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "price must not be negative")
				return
			}
			icon := offer.Icon
			if icon == "" {
				icon = serviceIcons[offer.Name]
			}
			if icon == "" {
				icon = defaultServiceIcon
			}
			description := offer.Description
			if description == "" {
				description = serviceDescriptions[offer.Name]
			}
			inputs = append(inputs, store.ServiceInput{
				Name:            offer.Name,
				Description:     description,
				Icon:            icon,
				DurationMinutes: offer.Duration,
				Price:           offer.Price,
			})
		}
		services, err := h.directory.ReplaceServices(r.Context(), businessID, inputs)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updateServicesResponse{Success: true, Services: nonNil(services)})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleBarberHistory(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireBarber(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		since, ok := h.historyStart(r.URL.Query().Get("filter"))
		if !ok {
			writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "filter must be today, yesterday, week or month")
			return
		}
		customers, err := h.directory.ListHistory(r.Context(), businessID, since)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(customers))
	case http.MethodDelete:
		count, err := h.directory.ClearHistory(r.Context(), businessID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, clearHistoryResponse{Success: true, Count: count})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// historyStart is local midnight of today, moved back by the filter range.
func (h *Handler) historyStart(filter string) (time.Time, bool) {
	loc := time.Local
	if h.analytics != nil {
		loc = h.analytics.Location()
	}
	start, _ := analytics.DayBounds(h.clock.Now(), loc)
	switch filter {
	case "", "today":
		return start, true
	case "yesterday":
		return start.AddDate(0, 0, -1), true
	case "week":
		return start.AddDate(0, 0, -7), true
	case "month":
		return start.AddDate(0, 0, -30), true
	default:
		return time.Time{}, false
	}
}
