package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"eline/internal/models"
	"eline/internal/onboarding"
	"eline/internal/store"
)

type businessResponse struct {
	Business    models.Business  `json:"business"`
	Services    []models.Service `json:"services"`
	QueueLength int              `json:"queueLength"`
}

type applyResponse struct {
	Success       bool   `json:"success"`
	ApplicationID string `json:"applicationId"`
}

func (h *Handler) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	business, err := h.queue.ResolveBusiness(r.Context(), businessKey(r, ""))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services, err := h.directory.ListServices(r.Context(), business.ID, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(services))
}

// handleBusinessByCode serves the shop page reached by scanning a QR code.
func (h *Handler) handleBusinessByCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := pathParts(r.URL.Path, "/api/business/")
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	business, err := h.directory.FindBusinessByBarberCode(r.Context(), parts[0])
	if errors.Is(err, store.ErrBusinessNotFound) {
		writeError(w, requestIDFromRequest(r), http.StatusNotFound, "business_not_found", "Shop not found")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services, err := h.directory.ListServices(r.Context(), business.ID, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	customers, err := h.queue.Queue(r.Context(), business.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	waiting := 0
	for _, c := range customers {
		if c.Status == models.StatusPending || c.Status.InQueue() {
			waiting++
		}
	}
	writeJSON(w, http.StatusOK, businessResponse{Business: business, Services: nonNil(services), QueueLength: waiting})
}

func (h *Handler) handleShopsList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	shops, err := h.directory.ListShops(r.Context(), store.ShopFilter{Status: models.BusinessApproved, RequireBarberCode: true})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(shops))
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	days, ok := parseDays(w, r, 7)
	if !ok {
		return
	}

	business, err := h.queue.ResolveBusiness(r.Context(), businessKey(r, ""))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.analytics.List(r.Context(), business.ID, days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req onboarding.ApplyInput
	if !h.decodeRequest(w, r, &req) {
		return
	}
	app, err := h.onboarding.Apply(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applyResponse{Success: true, ApplicationID: app.ID})
}

// parseDays reads the days query parameter, writing a 400 when it is not a
// positive integer.
func parseDays(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("days"))
	if raw == "" {
		return fallback, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 || days > 366 {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "days must be a positive integer up to 366")
		return 0, false
	}
	return days, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
