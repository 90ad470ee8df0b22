package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"eline/internal/models"
	"eline/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	businesses map[string]models.Business
	admins     map[string]models.Admin
	touched    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{businesses: map[string]models.Business{}, admins: map[string]models.Admin{}}
}

func (f *fakeStore) FindBusinessByBarberCode(ctx context.Context, code string) (models.Business, error) {
	b, ok := f.businesses[code]
	if !ok {
		return models.Business{}, store.ErrBusinessNotFound
	}
	return b, nil
}

func (f *fakeStore) CountAdmins(ctx context.Context) (int, error) {
	return len(f.admins), nil
}

func (f *fakeStore) CreateAdmin(ctx context.Context, admin models.Admin) (models.Admin, error) {
	if _, ok := f.admins[admin.Email]; ok {
		return models.Admin{}, store.ErrDuplicate
	}
	admin.ID = "admin-" + admin.Email
	f.admins[admin.Email] = admin
	return admin, nil
}

func (f *fakeStore) FindAdminByEmail(ctx context.Context, email string) (models.Admin, error) {
	a, ok := f.admins[email]
	if !ok {
		return models.Admin{}, store.ErrAdminNotFound
	}
	return a, nil
}

func (f *fakeStore) TouchAdminLogin(ctx context.Context, adminID string, at time.Time) error {
	f.touched = append(f.touched, adminID)
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return hash
}

func newService(t *testing.T) (*Service, *fakeStore, *clockwork.FakeClock) {
	t.Helper()
	st := newFakeStore()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	return NewService(st, NewTokens("secret", 0, clock), clock, nil), st, clock
}

func TestLoginBarber(t *testing.T) {
	svc, st, _ := newService(t)
	st.businesses["BARBER-ABC123"] = models.Business{ID: "b1", Name: "Shop", Email: "shop@example.com", BarberCode: "BARBER-ABC123", Status: models.BusinessApproved, PasswordHash: mustHash(t, "pw123456")}
	st.businesses["BARBER-SUSP01"] = models.Business{ID: "b2", BarberCode: "BARBER-SUSP01", Status: models.BusinessSuspended, PasswordHash: mustHash(t, "pw123456")}

	session, err := svc.LoginBarber(context.Background(), " barber-abc123 ", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, "b1", session.Business.ID)

	claims, err := svc.Tokens().Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "b1", claims.Subject)
	assert.Equal(t, models.RoleBarber, claims.Role)
	assert.Equal(t, "shop@example.com", claims.Email)
	assert.Equal(t, time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC), session.ExpiresAt)

	_, err = svc.LoginBarber(context.Background(), "BARBER-NOPE00", "pw123456")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)

	_, err = svc.LoginBarber(context.Background(), "BARBER-ABC123", "wrong")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)

	_, err = svc.LoginBarber(context.Background(), "BARBER-SUSP01", "wrong")
	assert.ErrorIs(t, err, store.ErrAccountDisabled)

	_, err = svc.LoginBarber(context.Background(), "", "pw")
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestLoginAdmin(t *testing.T) {
	svc, st, _ := newService(t)
	st.admins["root@example.com"] = models.Admin{ID: "a1", Email: "root@example.com", Role: models.RoleSuperAdmin, Active: true, PasswordHash: mustHash(t, "admin123")}
	st.admins["off@example.com"] = models.Admin{ID: "a2", Email: "off@example.com", Role: models.RoleAdmin, PasswordHash: mustHash(t, "admin123")}

	session, err := svc.LoginAdmin(context.Background(), "Root@Example.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "a1", session.Admin.ID)
	assert.NotNil(t, session.Admin.LastLoginAt)
	assert.Equal(t, []string{"a1"}, st.touched)

	claims, err := svc.Tokens().Parse(session.Token)
	require.NoError(t, err)
	assert.True(t, IsAdminRole(claims.Role))

	_, err = svc.LoginAdmin(context.Background(), "root@example.com", "nope")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)
	_, err = svc.LoginAdmin(context.Background(), "ghost@example.com", "admin123")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)
	_, err = svc.LoginAdmin(context.Background(), "off@example.com", "admin123")
	assert.ErrorIs(t, err, store.ErrAccountDisabled)
}

func TestEnsureDefaultAdmin(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	created, err := svc.EnsureDefaultAdmin(ctx, "Admin@Eline.app", "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	admin := st.admins["admin@eline.app"]
	assert.Equal(t, "Super Admin", admin.Name)
	assert.Equal(t, models.RoleSuperAdmin, admin.Role)
	assert.True(t, CheckPassword(admin.PasswordHash, "admin123"))

	created, err = svc.EnsureDefaultAdmin(ctx, "other@eline.app", "x")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, st.admins, 1)
}

func TestTokensRejectExpiredAndForeign(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	tokens := NewTokens("secret", time.Hour, clock)

	token, _, err := tokens.Issue("b1", "", models.RoleBarber)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = tokens.Parse(token)
	assert.True(t, errors.Is(err, ErrTokenExpired))

	other := NewTokens("other", time.Hour, clock)
	foreign, _, err := other.Issue("b1", "", models.RoleBarber)
	require.NoError(t, err)
	_, err = tokens.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
