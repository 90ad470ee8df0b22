package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"eline/internal/models"
	"eline/internal/queue"
)

type joinRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,max=32"`
	ServiceID  string `json:"serviceId" validate:"required"`
	BusinessID string `json:"businessId"`
}

type statusResponse struct {
	Customer      *models.Customer `json:"customer"`
	Position      *int             `json:"position,omitempty"`
	EstimatedWait *int             `json:"estimatedWait,omitempty"`
	Error         string           `json:"error,omitempty"`
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req joinRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	customer, err := h.queue.Join(r.Context(), queue.JoinInput{
		Name:        req.Name,
		Phone:       req.Phone,
		ServiceID:   req.ServiceID,
		BusinessKey: businessKey(r, req.BusinessID),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	customers, err := h.queue.Queue(r.Context(), businessKey(r, ""))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

// handleStatus never answers 4xx: unknown or malformed tokens produce a null
// customer so the status page can keep polling.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/queue/status/"), "/")
	token, err := strconv.Atoi(raw)
	if err != nil || token <= 0 {
		writeJSON(w, http.StatusOK, statusResponse{Error: "Invalid token"})
		return
	}

	status, err := h.queue.Status(r.Context(), token, businessKey(r, ""))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if status == nil {
		writeJSON(w, http.StatusOK, statusResponse{})
		return
	}
	customer := status.Customer
	customer.Phone = maskPhone(customer.Phone)
	writeJSON(w, http.StatusOK, statusResponse{
		Customer:      &customer,
		Position:      &status.Position,
		EstimatedWait: &status.EstimatedWait,
	})
}

// maskPhone keeps the last four digits. The status page is public and a token
// looked up without a business may belong to another shop.
func maskPhone(phone string) string {
	const visible = 4
	runes := []rune(phone)
	if len(runes) <= visible {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-visible) + string(runes[len(runes)-visible:])
}

// handleCustomerActions serves POST /api/queue/{id}/{approve|start|complete}
// and DELETE /api/queue/{id}.
func (h *Handler) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/queue/")
	if len(parts) == 0 || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	customerID := parts[0]
	if !isValidUUID(customerID) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "customer id must be a UUID")
		return
	}

	var action func(ctx context.Context, customerID string) error
	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		action = h.queue.Cancel
	case len(parts) == 1:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	case r.Method != http.MethodPost:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	case parts[1] == "approve":
		action = h.queue.Approve
	case parts[1] == "start":
		action = h.queue.Start
	case parts[1] == "complete":
		action = h.queue.Complete
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := action(r.Context(), customerID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// businessKey picks the business from the body, the businessId query
// parameter or the X-Business-ID header, in that order.
func businessKey(r *http.Request, fromBody string) string {
	if key := strings.TrimSpace(fromBody); key != "" {
		return key
	}
	if key := strings.TrimSpace(r.URL.Query().Get("businessId")); key != "" {
		return key
	}
	return strings.TrimSpace(r.Header.Get("X-Business-ID"))
}
