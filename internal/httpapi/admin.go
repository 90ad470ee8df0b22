package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"eline/internal/models"
	"eline/internal/store"
)

const (
	dashboardRecentLimit = 10
	shopRecentLimit      = 20
	shopAnalyticsRows    = 30
)

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type adminSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type adminLoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Admin     adminSummary `json:"admin"`
}

type dashboardResponse struct {
	Stats          models.DashboardStats `json:"stats"`
	RecentActivity []models.Customer     `json:"recentActivity"`
}

type approveRequest struct {
	Notes string `json:"notes"`
}

type approveResponse struct {
	Success      bool             `json:"success"`
	Business     models.Business  `json:"business"`
	Services     []models.Service `json:"services"`
	BarberCode   string           `json:"barberCode"`
	TempPassword string           `json:"tempPassword"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required"`
	Notes  string `json:"notes"`
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

type shopDetailResponse struct {
	Business        models.Business    `json:"business"`
	Services        []models.Service   `json:"services"`
	RecentCustomers []models.Customer  `json:"recentCustomers"`
	Analytics       []models.Analytics `json:"analytics"`
}

type businessStatusResponse struct {
	Success  bool            `json:"success"`
	Business models.Business `json:"business"`
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req adminLoginRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	session, err := h.auth.LoginAdmin(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	case errors.Is(err, store.ErrAccountDisabled):
		writeError(w, requestIDFromRequest(r), http.StatusForbidden, "account_disabled", "Account is disabled")
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}

	a := session.Admin
	writeJSON(w, http.StatusOK, adminLoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Admin:     adminSummary{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role},
	})
}

func (h *Handler) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	dayStart, _ := h.historyStart("today")
	stats, err := h.dashboard.DashboardStats(r.Context(), dayStart)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	recent, err := h.directory.ListRecentCustomers(r.Context(), "", dashboardRecentLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{Stats: stats, RecentActivity: nonNil(recent)})
}

func (h *Handler) handleApplications(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := models.ApplicationStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", models.ApplicationPending, models.ApplicationApproved, models.ApplicationRejected:
	default:
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "unknown application status")
		return
	}
	apps, err := h.onboarding.List(r.Context(), status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// handleApplicationActions serves /api/admin/applications/{id} and its
// approve and reject actions.
func (h *Handler) handleApplicationActions(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	parts := pathParts(r.URL.Path, "/api/admin/applications/")
	if len(parts) == 0 || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	appID := parts[0]
	if !isValidUUID(appID) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "invalid application id")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		app, err := h.onboarding.Get(r.Context(), appID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, app)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch parts[1] {
	case "approve":
		var req approveRequest
		if !h.decodeRequest(w, r, &req) {
			return
		}
		approval, err := h.onboarding.Approve(r.Context(), appID, adminID, req.Notes)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, approveResponse{
			Success:      true,
			Business:     approval.Business,
			Services:     nonNil(approval.Services),
			BarberCode:   approval.BarberCode,
			TempPassword: approval.TempPassword,
		})
	case "reject":
		var req rejectRequest
		if !h.decodeRequest(w, r, &req) {
			return
		}
		if _, err := h.onboarding.Reject(r.Context(), appID, adminID, req.Reason, req.Notes); err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleShops(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := models.BusinessStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", models.BusinessPending, models.BusinessApproved, models.BusinessSuspended, models.BusinessRejected:
	default:
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "unknown shop status")
		return
	}
	shops, err := h.directory.ListShops(r.Context(), store.ShopFilter{Status: status})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(shops))
}

// handleShopActions serves /api/admin/shops/{id} and the suspend and
// reactivate actions.
func (h *Handler) handleShopActions(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	parts := pathParts(r.URL.Path, "/api/admin/shops/")
	if len(parts) == 0 || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	businessID := parts[0]
	if !isValidUUID(businessID) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "invalid shop id")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.shopDetail(w, r, businessID)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var (
		business models.Business
		err      error
	)
	switch parts[1] {
	case "suspend":
		var req suspendRequest
		if !h.decodeRequest(w, r, &req) {
			return
		}
		business, err = h.onboarding.Suspend(r.Context(), businessID, adminID, req.Reason)
	case "reactivate":
		business, err = h.onboarding.Reactivate(r.Context(), businessID, adminID)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, businessStatusResponse{Success: true, Business: business})
}

func (h *Handler) shopDetail(w http.ResponseWriter, r *http.Request, businessID string) {
	ctx := r.Context()
	business, err := h.directory.GetBusiness(ctx, businessID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services, err := h.directory.ListServices(ctx, businessID, false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	recent, err := h.directory.ListRecentCustomers(ctx, businessID, shopRecentLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.analytics.List(ctx, businessID, 366)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(rows) > shopAnalyticsRows {
		rows = rows[:shopAnalyticsRows]
	}
	writeJSON(w, http.StatusOK, shopDetailResponse{
		Business:        business,
		Services:        nonNil(services),
		RecentCustomers: nonNil(recent),
		Analytics:       rows,
	})
}

func (h *Handler) handlePlatformAnalytics(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	days, ok := parseDays(w, r, 30)
	if !ok {
		return
	}

	summary, err := h.analytics.PlatformSummary(r.Context(), days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(summary))
}
