package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"eline/internal/analytics"
	"eline/internal/auth"
	"eline/internal/models"
	"eline/internal/onboarding"
	"eline/internal/queue"
	"eline/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DashboardStore provides the platform totals for the admin dashboard.
type DashboardStore interface {
	DashboardStats(ctx context.Context, dayStart time.Time) (models.DashboardStats, error)
}

type Dependencies struct {
	Queue      *queue.Engine
	Directory  store.DirectoryStore
	Dashboard  DashboardStore
	Auth       *auth.Service
	Onboarding *onboarding.Service
	Analytics  *analytics.Generator
	Clock      clockwork.Clock
	Log        *zap.Logger
}

type Handler struct {
	queue      *queue.Engine
	directory  store.DirectoryStore
	dashboard  DashboardStore
	auth       *auth.Service
	onboarding *onboarding.Service
	analytics  *analytics.Generator
	clock      clockwork.Clock
	log        *zap.Logger
	validate   *validator.Validate
}

type errorResponse struct {
	RequestID string        `json:"requestId"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func NewHandler(deps Dependencies) *Handler {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Handler{
		queue:      deps.Queue,
		directory:  deps.Directory,
		dashboard:  deps.Dashboard,
		auth:       deps.Auth,
		onboarding: deps.Onboarding,
		analytics:  deps.Analytics,
		clock:      clock,
		log:        log,
		validate:   validate,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleLiveness)
	mux.HandleFunc("/api/health", h.handleHealth)

	mux.HandleFunc("/api/queue", h.handleQueue)
	mux.HandleFunc("/api/queue/join", h.handleJoin)
	mux.HandleFunc("/api/queue/status/", h.handleStatus)
	mux.HandleFunc("/api/queue/", h.handleCustomerActions)

	mux.HandleFunc("/api/services", h.handleServices)
	mux.HandleFunc("/api/business/", h.handleBusinessByCode)
	mux.HandleFunc("/api/shops/list", h.handleShopsList)
	mux.HandleFunc("/api/analytics", h.handleAnalytics)
	mux.HandleFunc("/api/shop/apply", h.handleApply)

	mux.HandleFunc("/api/barber/login", h.handleBarberLogin)
	mux.HandleFunc("/api/barber/services", h.handleBarberServices)
	mux.HandleFunc("/api/barber/history", h.handleBarberHistory)

	mux.HandleFunc("/api/admin/login", h.handleAdminLogin)
	mux.HandleFunc("/api/admin/dashboard", h.handleAdminDashboard)
	mux.HandleFunc("/api/admin/applications", h.handleApplications)
	mux.HandleFunc("/api/admin/applications/", h.handleApplicationActions)
	mux.HandleFunc("/api/admin/shops", h.handleShops)
	mux.HandleFunc("/api/admin/shops/", h.handleShopActions)
	mux.HandleFunc("/api/admin/analytics", h.handlePlatformAnalytics)
	return mux
}

func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	now := h.clock.Now().UTC()
	if err := h.directory.Ping(r.Context()); err != nil {
		h.log.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     err.Error(),
			"timestamp": now.Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": now.Format(time.RFC3339),
	})
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

// pathParts splits the path below prefix into its non-empty segments.
func pathParts(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// decodeRequest reads a JSON body into target and runs its validate tags. An
// empty body decodes as an empty object.
// It writes the 400 response itself and reports whether decoding succeeded.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	requestID := requestIDFromRequest(r)
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	trimStrings(target)
	if err := h.validate.Struct(target); err != nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", describeValidation(err))
		return false
	}
	return true
}

// trimStrings trims every top-level string field of the struct target points at.
func trimStrings(target interface{}) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() == reflect.String && field.CanSet() {
			field.SetString(strings.TrimSpace(field.String()))
		}
	}
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request payload"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields = append(fields, fe.Field()+" is required")
		default:
			fields = append(fields, fe.Field()+" is invalid")
		}
	}
	return strings.Join(fields, ", ")
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest, "invalid_request", strings.TrimSuffix(err.Error(), ": "+store.ErrValidation.Error())
	case errors.Is(err, store.ErrBusinessNotFound):
		return http.StatusNotFound, "business_not_found", "business not found"
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, store.ErrCustomerNotFound):
		return http.StatusNotFound, "customer_not_found", "customer not found"
	case errors.Is(err, store.ErrApplicationNotFound):
		return http.StatusNotFound, "application_not_found", "application not found"
	case errors.Is(err, store.ErrAdminNotFound):
		return http.StatusNotFound, "admin_not_found", "admin not found"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "current status does not allow this action"
	case errors.Is(err, store.ErrBusinessInactive):
		return http.StatusConflict, "business_inactive", "shop is not accepting customers"
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, "duplicate", "record already exists"
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid credentials"
	case errors.Is(err, store.ErrAccountDisabled):
		return http.StatusForbidden, "account_disabled", "account is disabled"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

// fail maps err to a response and logs anything unexpected.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFromRequest(r)),
			zap.Error(err))
	}
	writeError(w, requestIDFromRequest(r), status, code, msg)
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
