package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eline/internal/analytics"
	"eline/internal/auth"
	"eline/internal/models"
	"eline/internal/notify"
	"eline/internal/onboarding"
	"eline/internal/queue"
	"eline/internal/store"
	"eline/internal/store/memory"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

type fakeStore struct {
	pingFn            func(ctx context.Context) error
	getBusinessFn     func(ctx context.Context, businessID string) (models.Business, error)
	barberCodeFn      func(ctx context.Context, code string) (models.Business, error)
	listShopsFn       func(ctx context.Context, filter store.ShopFilter) ([]models.ShopSummary, error)
	listServicesFn    func(ctx context.Context, businessID string, activeOnly bool) ([]models.Service, error)
	replaceServicesFn func(ctx context.Context, businessID string, services []store.ServiceInput) ([]models.Service, error)
	historyFn         func(ctx context.Context, businessID string, since time.Time) ([]models.Customer, error)
	clearHistoryFn    func(ctx context.Context, businessID string) (int64, error)
	recentFn          func(ctx context.Context, businessID string, limit int) ([]models.Customer, error)
	findAdminFn       func(ctx context.Context, email string) (models.Admin, error)
	dashboardFn       func(ctx context.Context, dayStart time.Time) (models.DashboardStats, error)
	getApplicationFn  func(ctx context.Context, applicationID string) (models.ShopApplication, error)
	approveFn         func(ctx context.Context, input store.ApproveApplicationInput) (models.Business, []models.Service, error)
	rejectFn          func(ctx context.Context, input store.ReviewInput) (models.ShopApplication, error)
	updateStatusFn    func(ctx context.Context, input store.BusinessStatusInput) (models.Business, error)
}

func (f fakeStore) Ping(ctx context.Context) error {
	if f.pingFn == nil {
		return nil
	}
	return f.pingFn(ctx)
}

func (f fakeStore) GetBusiness(ctx context.Context, businessID string) (models.Business, error) {
	if f.getBusinessFn == nil {
		return models.Business{}, store.ErrBusinessNotFound
	}
	return f.getBusinessFn(ctx, businessID)
}

func (f fakeStore) FindBusinessByBarberCode(ctx context.Context, code string) (models.Business, error) {
	if f.barberCodeFn == nil {
		return models.Business{}, store.ErrBusinessNotFound
	}
	return f.barberCodeFn(ctx, code)
}

func (f fakeStore) ListShops(ctx context.Context, filter store.ShopFilter) ([]models.ShopSummary, error) {
	if f.listShopsFn == nil {
		return nil, nil
	}
	return f.listShopsFn(ctx, filter)
}

func (f fakeStore) ListServices(ctx context.Context, businessID string, activeOnly bool) ([]models.Service, error) {
	if f.listServicesFn == nil {
		return nil, nil
	}
	return f.listServicesFn(ctx, businessID, activeOnly)
}

func (f fakeStore) ReplaceServices(ctx context.Context, businessID string, services []store.ServiceInput) ([]models.Service, error) {
	if f.replaceServicesFn == nil {
		return nil, nil
	}
	return f.replaceServicesFn(ctx, businessID, services)
}

func (f fakeStore) ListHistory(ctx context.Context, businessID string, since time.Time) ([]models.Customer, error) {
	if f.historyFn == nil {
		return nil, nil
	}
	return f.historyFn(ctx, businessID, since)
}

func (f fakeStore) ClearHistory(ctx context.Context, businessID string) (int64, error) {
	if f.clearHistoryFn == nil {
		return 0, nil
	}
	return f.clearHistoryFn(ctx, businessID)
}

func (f fakeStore) ListRecentCustomers(ctx context.Context, businessID string, limit int) ([]models.Customer, error) {
	if f.recentFn == nil {
		return nil, nil
	}
	return f.recentFn(ctx, businessID, limit)
}

func (f fakeStore) CountAdmins(ctx context.Context) (int, error) {
	return 1, nil
}

func (f fakeStore) CreateAdmin(ctx context.Context, admin models.Admin) (models.Admin, error) {
	return admin, nil
}

func (f fakeStore) FindAdminByEmail(ctx context.Context, email string) (models.Admin, error) {
	if f.findAdminFn == nil {
		return models.Admin{}, store.ErrAdminNotFound
	}
	return f.findAdminFn(ctx, email)
}

func (f fakeStore) TouchAdminLogin(ctx context.Context, adminID string, at time.Time) error {
	return nil
}

func (f fakeStore) DashboardStats(ctx context.Context, dayStart time.Time) (models.DashboardStats, error) {
	if f.dashboardFn == nil {
		return models.DashboardStats{}, nil
	}
	return f.dashboardFn(ctx, dayStart)
}

func (f fakeStore) CreateApplication(ctx context.Context, app models.ShopApplication) (models.ShopApplication, error) {
	app.ID = uuid.NewString()
	app.Status = models.ApplicationPending
	return app, nil
}

func (f fakeStore) GetApplication(ctx context.Context, applicationID string) (models.ShopApplication, error) {
	if f.getApplicationFn == nil {
		return models.ShopApplication{}, store.ErrApplicationNotFound
	}
	return f.getApplicationFn(ctx, applicationID)
}

func (f fakeStore) ListApplications(ctx context.Context, status models.ApplicationStatus) ([]models.ShopApplication, error) {
	return nil, nil
}

func (f fakeStore) ApproveApplication(ctx context.Context, input store.ApproveApplicationInput) (models.Business, []models.Service, error) {
	if f.approveFn == nil {
		return models.Business{}, nil, store.ErrApplicationNotFound
	}
	return f.approveFn(ctx, input)
}

func (f fakeStore) RejectApplication(ctx context.Context, input store.ReviewInput) (models.ShopApplication, error) {
	if f.rejectFn == nil {
		return models.ShopApplication{}, store.ErrApplicationNotFound
	}
	return f.rejectFn(ctx, input)
}

func (f fakeStore) UpdateBusinessStatus(ctx context.Context, input store.BusinessStatusInput) (models.Business, error) {
	if f.updateStatusFn == nil {
		return models.Business{}, store.ErrBusinessNotFound
	}
	return f.updateStatusFn(ctx, input)
}

type nopSender struct{}

func (nopSender) Send(ctx context.Context, msg notify.Message) notify.Result {
	return notify.Result{Success: true}
}

type testServer struct {
	handler http.Handler
	memory  *memory.Store
	tokens  *auth.Tokens
	clock   *clockwork.FakeClock
	demo    models.Business
	haircut models.Service
}

func newTestServer(t *testing.T, st fakeStore) *testServer {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	mem := memory.New()
	demo := mem.AddBusiness(models.Business{Name: "Demo Salon", Subdomain: "demo", BarberCode: "BARBER-DEMO01"})
	haircut := mem.AddService(models.Service{BusinessID: demo.ID, Name: "Haircut", DurationMinutes: 25, Price: decimal.NewFromInt(25), Active: true})

	tokens := auth.NewTokens("test-secret", time.Hour, clock)
	templates := notify.Templates{AppURL: "https://eline.test"}
	h := NewHandler(Dependencies{
		Queue:      queue.New(mem, nopSender{}, nil, clock, nil, queue.Options{Templates: templates}),
		Directory:  st,
		Dashboard:  st,
		Auth:       auth.NewService(st, tokens, clock, nil),
		Onboarding: onboarding.New(st, nopSender{}, templates, clock, nil),
		Analytics:  analytics.NewGenerator(mem, clock, time.UTC, nil),
		Clock:      clock,
	})
	return &testServer{
		handler: AuthMiddleware(tokens, h.Routes()),
		memory:  mem,
		tokens:  tokens,
		clock:   clock,
		demo:    demo,
		haircut: haircut,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) token(t *testing.T, subject, role string) string {
	t.Helper()
	token, _, err := s.tokens.Issue(subject, subject+"@eline.test", role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", resp.Body.String(), err)
	}
}

func TestHealthReportsDatabase(t *testing.T) {
	s := newTestServer(t, fakeStore{pingFn: func(ctx context.Context) error { return errors.New("connection refused") }})

	resp := s.do(t, http.MethodGet, "/api/health", nil, "")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "unhealthy" || body["database"] != "disconnected" {
		t.Fatalf("unexpected health body: %v", body)
	}

	s = newTestServer(t, fakeStore{})
	resp = s.do(t, http.MethodGet, "/api/health", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestJoinThenStatus(t *testing.T) {
	s := newTestServer(t, fakeStore{})

	resp := s.do(t, http.MethodPost, "/api/queue/join", map[string]string{
		"name":       "Alice",
		"phone":      "+15550001",
		"serviceId":  s.haircut.ID,
		"businessId": "demo",
	}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var customer models.Customer
	decodeBody(t, resp, &customer)
	if customer.Token != 1 || customer.EstimatedWait != 25 || customer.Status != models.StatusPending {
		t.Fatalf("unexpected customer: %+v", customer)
	}

	resp = s.do(t, http.MethodGet, "/api/queue/status/1?businessId=demo", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var status struct {
		Customer *models.Customer `json:"customer"`
		Position *int             `json:"position"`
	}
	decodeBody(t, resp, &status)
	if status.Customer == nil || status.Customer.ID != customer.ID {
		t.Fatalf("expected customer %s, got %+v", customer.ID, status.Customer)
	}
	if status.Position == nil || *status.Position != 0 {
		t.Fatalf("expected position 0, got %v", status.Position)
	}
	if status.Customer.Phone != "*****0001" {
		t.Fatalf("expected masked phone, got %q", status.Customer.Phone)
	}
}

func TestStatusInvalidToken(t *testing.T) {
	s := newTestServer(t, fakeStore{})

	resp := s.do(t, http.MethodGet, "/api/queue/status/abc", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if got := strings.TrimSpace(resp.Body.String()); got != `{"customer":null,"error":"Invalid token"}` {
		t.Fatalf("unexpected body %s", got)
	}

	resp = s.do(t, http.MethodGet, "/api/queue/status/42?businessId=demo", nil, "")
	if got := strings.TrimSpace(resp.Body.String()); got != `{"customer":null}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestJoinValidation(t *testing.T) {
	s := newTestServer(t, fakeStore{})

	resp := s.do(t, http.MethodPost, "/api/queue/join", map[string]string{"phone": "+1", "serviceId": s.haircut.ID, "businessId": "demo"}, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	var body errorResponse
	decodeBody(t, resp, &body)
	if body.Error.Message != "name is required" {
		t.Fatalf("unexpected message %q", body.Error.Message)
	}

	resp = s.do(t, http.MethodPost, "/api/queue/join", map[string]string{"name": "A", "phone": "+1", "serviceId": s.haircut.ID, "businessId": "nowhere"}, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestCustomerActions(t *testing.T) {
	s := newTestServer(t, fakeStore{})

	resp := s.do(t, http.MethodPost, "/api/queue/not-a-uuid/approve", nil, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	c := s.memory.PutCustomer(models.Customer{BusinessID: s.demo.ID, ServiceID: s.haircut.ID, Name: "Bob", Phone: "+1", Token: 1, Status: models.StatusPending, JoinedAt: s.clock.Now()})
	resp = s.do(t, http.MethodPost, "/api/queue/"+c.ID+"/start", nil, "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for start from pending, got %d", resp.Code)
	}
	resp = s.do(t, http.MethodPost, "/api/queue/"+c.ID+"/approve", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	resp = s.do(t, http.MethodDelete, "/api/queue/"+c.ID, nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	resp = s.do(t, http.MethodPost, "/api/queue/"+uuid.NewString()+"/complete", nil, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestBarberRoutesRequireBarberToken(t *testing.T) {
	var gotBusiness string
	s := newTestServer(t, fakeStore{
		listServicesFn: func(ctx context.Context, businessID string, activeOnly bool) ([]models.Service, error) {
			gotBusiness = businessID
			if activeOnly {
				t.Errorf("barber listing must include inactive services")
			}
			return nil, nil
		},
	})

	resp := s.do(t, http.MethodGet, "/api/barber/services", nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	resp = s.do(t, http.MethodGet, "/api/barber/services", nil, "garbage")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	resp = s.do(t, http.MethodGet, "/api/barber/services", nil, s.token(t, "admin-1", models.RoleAdmin))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}

	resp = s.do(t, http.MethodGet, "/api/barber/services?businessId=other", nil, s.token(t, "shop-1", models.RoleBarber))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotBusiness != "shop-1" {
		t.Fatalf("expected business from token, got %q", gotBusiness)
	}
	if got := strings.TrimSpace(resp.Body.String()); got != "[]" {
		t.Fatalf("expected empty list, got %s", got)
	}
}

func TestExpiredToken(t *testing.T) {
	s := newTestServer(t, fakeStore{})
	token := s.token(t, "shop-1", models.RoleBarber)
	s.clock.Advance(2 * time.Hour)

	resp := s.do(t, http.MethodGet, "/api/barber/history", nil, token)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	var body errorResponse
	decodeBody(t, resp, &body)
	if body.Error.Code != "token_expired" {
		t.Fatalf("expected token_expired, got %q", body.Error.Code)
	}
}

func TestBarberLoginMessages(t *testing.T) {
	hash, err := auth.HashPassword("secret12")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	shops := map[string]models.Business{
		"BARBER-AAAAAA": {ID: "shop-1", Name: "Open", BarberCode: "BARBER-AAAAAA", Status: models.BusinessApproved, PasswordHash: hash},
		"BARBER-BBBBBB": {ID: "shop-2", Name: "Closed", BarberCode: "BARBER-BBBBBB", Status: models.BusinessSuspended, PasswordHash: hash},
	}
	s := newTestServer(t, fakeStore{
		barberCodeFn: func(ctx context.Context, code string) (models.Business, error) {
			b, ok := shops[code]
			if !ok {
				return models.Business{}, store.ErrBusinessNotFound
			}
			return b, nil
		},
	})

	cases := []struct {
		code    string
		status  int
		message string
	}{
		{code: "BARBER-ZZZZZZ", status: http.StatusUnauthorized, message: "Invalid barber code"},
		{code: "BARBER-BBBBBB", status: http.StatusForbidden, message: "Shop is not active"},
	}
	for _, tc := range cases {
		resp := s.do(t, http.MethodPost, "/api/barber/login", map[string]string{"barberCode": tc.code, "password": "secret12"}, "")
		if resp.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, resp.Code)
		}
		var body errorResponse
		decodeBody(t, resp, &body)
		if body.Error.Message != tc.message {
			t.Fatalf("%s: expected %q, got %q", tc.code, tc.message, body.Error.Message)
		}
	}

	resp := s.do(t, http.MethodPost, "/api/barber/login", map[string]string{"barberCode": "barber-aaaaaa", "password": "wrong"}, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}

	resp = s.do(t, http.MethodPost, "/api/barber/login", map[string]string{"barberCode": "barber-aaaaaa", "password": "secret12"}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var login barberLoginResponse
	decodeBody(t, resp, &login)
	if login.Business.ID != "shop-1" || login.Token == "" {
		t.Fatalf("unexpected login response: %+v", login)
	}
	claims, err := s.tokens.Parse(login.Token)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.Subject != "shop-1" || claims.Role != models.RoleBarber {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestBarberUpdateServicesFillsDefaults(t *testing.T) {
	var got []store.ServiceInput
	s := newTestServer(t, fakeStore{
		replaceServicesFn: func(ctx context.Context, businessID string, services []store.ServiceInput) ([]models.Service, error) {
			got = services
			out := make([]models.Service, 0, len(services))
			for _, svc := range services {
				out = append(out, models.Service{ID: uuid.NewString(), BusinessID: businessID, Name: svc.Name, Icon: svc.Icon, Active: true})
			}
			return out, nil
		},
	})
	token := s.token(t, "shop-1", models.RoleBarber)

	payload := map[string]interface{}{
		"servicesData": []map[string]interface{}{
			{"name": "Beard Trim", "price": 15, "duration": 15},
			{"name": "Threading", "price": 5, "duration": 10},
		},
	}
	resp := s.do(t, http.MethodPost, "/api/barber/services", payload, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 services, got %d", len(got))
	}
	if got[0].Icon != "🧔" || got[0].Description != "Beard shaping and trimming" {
		t.Fatalf("unexpected beard trim defaults: %+v", got[0])
	}
	if got[1].Icon != defaultServiceIcon || got[1].Description != "" {
		t.Fatalf("unexpected threading defaults: %+v", got[1])
	}
	if !got[0].Price.Equal(decimal.NewFromInt(15)) || got[1].DurationMinutes != 10 {
		t.Fatalf("unexpected price or duration: %+v", got)
	}

	payload = map[string]interface{}{
		"servicesData": []map[string]interface{}{{"name": "Shave", "price": 10, "duration": 0}},
	}
	resp = s.do(t, http.MethodPost, "/api/barber/services", payload, token)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for zero duration, got %d", resp.Code)
	}
}

func TestBarberHistoryFilters(t *testing.T) {
	var since time.Time
	s := newTestServer(t, fakeStore{
		historyFn: func(ctx context.Context, businessID string, from time.Time) ([]models.Customer, error) {
			since = from
			return nil, nil
		},
		clearHistoryFn: func(ctx context.Context, businessID string) (int64, error) {
			return 3, nil
		},
	})
	token := s.token(t, "shop-1", models.RoleBarber)

	cases := map[string]time.Time{
		"":          time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		"yesterday": time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		"week":      time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC),
		"month":     time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC),
	}
	for filter, want := range cases {
		resp := s.do(t, http.MethodGet, "/api/barber/history?filter="+filter, nil, token)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", filter, resp.Code)
		}
		if !since.Equal(want) {
			t.Fatalf("%s: expected since %s, got %s", filter, want, since)
		}
	}

	resp := s.do(t, http.MethodGet, "/api/barber/history?filter=decade", nil, token)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	resp = s.do(t, http.MethodDelete, "/api/barber/history", nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var cleared clearHistoryResponse
	decodeBody(t, resp, &cleared)
	if !cleared.Success || cleared.Count != 3 {
		t.Fatalf("unexpected clear response: %+v", cleared)
	}
}

func TestAdminLogin(t *testing.T) {
	hash, err := auth.HashPassword("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	s := newTestServer(t, fakeStore{
		findAdminFn: func(ctx context.Context, email string) (models.Admin, error) {
			switch email {
			case "admin@eline.test":
				return models.Admin{ID: "admin-1", Name: "Super Admin", Email: email, Role: models.RoleSuperAdmin, Active: true, PasswordHash: hash}, nil
			case "old@eline.test":
				return models.Admin{ID: "admin-2", Email: email, Role: models.RoleAdmin, PasswordHash: hash}, nil
			}
			return models.Admin{}, store.ErrAdminNotFound
		},
	})

	resp := s.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "nobody@eline.test", "password": "admin123"}, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	resp = s.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "old@eline.test", "password": "admin123"}, "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}

	resp = s.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "Admin@Eline.test", "password": "admin123"}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var login adminLoginResponse
	decodeBody(t, resp, &login)
	if login.Admin.ID != "admin-1" || login.Admin.Role != models.RoleSuperAdmin {
		t.Fatalf("unexpected admin: %+v", login.Admin)
	}

	resp = s.do(t, http.MethodGet, "/api/admin/dashboard", nil, login.Token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	resp = s.do(t, http.MethodGet, "/api/admin/dashboard", nil, s.token(t, "shop-1", models.RoleBarber))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestAdminApproveApplication(t *testing.T) {
	appID := uuid.NewString()
	var reviewedBy string
	s := newTestServer(t, fakeStore{
		getApplicationFn: func(ctx context.Context, id string) (models.ShopApplication, error) {
			return models.ShopApplication{
				ID:       id,
				ShopName: "Sharp Cuts",
				Phone:    "+15550002",
				Status:   models.ApplicationPending,
				ServicesOffered: map[string]models.OfferedService{
					"Haircut": {Enabled: true, Price: decimal.NewFromInt(20), Duration: 20},
				},
			}, nil
		},
		approveFn: func(ctx context.Context, input store.ApproveApplicationInput) (models.Business, []models.Service, error) {
			reviewedBy = input.ReviewedBy
			b := input.Business
			b.ID = uuid.NewString()
			return b, []models.Service{{ID: uuid.NewString(), BusinessID: b.ID, Name: "Haircut"}}, nil
		},
	})
	token := s.token(t, "admin-1", models.RoleAdmin)

	resp := s.do(t, http.MethodPost, "/api/admin/applications/"+appID+"/approve", nil, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var approved approveResponse
	decodeBody(t, resp, &approved)
	if !approved.Success || !strings.HasPrefix(approved.BarberCode, "BARBER-") || len(approved.TempPassword) != 8 {
		t.Fatalf("unexpected approval: %+v", approved)
	}
	if approved.Business.BarberCode != approved.BarberCode || len(approved.Services) != 1 {
		t.Fatalf("unexpected approved business: %+v", approved)
	}
	if reviewedBy != "admin-1" {
		t.Fatalf("expected reviewer from token, got %q", reviewedBy)
	}

	resp = s.do(t, http.MethodPost, "/api/admin/applications/"+appID+"/reject", map[string]string{"notes": "blurry photo"}, token)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without reason, got %d", resp.Code)
	}
}

func TestAdminSuspendShop(t *testing.T) {
	shopID := uuid.NewString()
	var got store.BusinessStatusInput
	s := newTestServer(t, fakeStore{
		updateStatusFn: func(ctx context.Context, input store.BusinessStatusInput) (models.Business, error) {
			got = input
			if input.Action == store.BusinessReactivate {
				return models.Business{}, store.ErrInvalidState
			}
			return models.Business{ID: input.BusinessID, Status: models.BusinessSuspended}, nil
		},
	})
	token := s.token(t, "admin-1", models.RoleSuperAdmin)

	resp := s.do(t, http.MethodPost, "/api/admin/shops/"+shopID+"/suspend", map[string]string{"reason": "complaints"}, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got.BusinessID != shopID || got.Action != store.BusinessSuspend || got.Notes != "complaints" || got.ActorID != "admin-1" {
		t.Fatalf("unexpected status input: %+v", got)
	}

	resp = s.do(t, http.MethodPost, "/api/admin/shops/"+shopID+"/reactivate", nil, token)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	resp = s.do(t, http.MethodGet, "/api/admin/shops?status=closed", nil, token)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 60, IPBurst: 2, BusinessPerMinute: 600, BusinessBurst: 100, Clock: clock})
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("/api/queue"); code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, code)
		}
	}
	if code := send("/api/queue"); code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", code)
	}
	if code := send("/healthz"); code != http.StatusOK {
		t.Fatalf("expected health checks to bypass the limiter, got %d", code)
	}
	clock.Advance(time.Second)
	if code := send("/api/queue"); code != http.StatusOK {
		t.Fatalf("expected status 200 after refill, got %d", code)
	}
}

func TestRateLimiterPerBusiness(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 600, IPBurst: 100, BusinessPerMinute: 60, BusinessBurst: 1, Clock: clock})
	var seen string
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		seen = body["businessId"]
		w.WriteHeader(http.StatusOK)
	}))

	send := func(business string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/queue/join", strings.NewReader(`{"businessId":"`+business+`"}`))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	if code := send("demo"); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if seen != "demo" {
		t.Fatalf("expected body to be restored, got %q", seen)
	}
	if code := send("demo"); code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", code)
	}
	if code := send("other"); code != http.StatusOK {
		t.Fatalf("expected a separate bucket per business, got %d", code)
	}
}

func TestRateLimiterRetryAfterAndEviction(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 600, IPBurst: 100, BusinessPerMinute: 30, BusinessBurst: 1, Clock: clock})
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(business string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/queue?businessId="+business, nil)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp
	}

	if resp := send("demo"); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	resp := send("DEMO")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected business keys to share a bucket regardless of case, got %d", resp.Code)
	}
	if got := resp.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}
	if n := limiter.size(); n != 2 {
		t.Fatalf("expected ip and business buckets, got %d", n)
	}

	clock.Advance(bucketSweepEvery)
	if resp := send("other"); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if n := limiter.size(); n != 2 {
		t.Fatalf("expected idle buckets to be swept, got %d live", n)
	}
}
