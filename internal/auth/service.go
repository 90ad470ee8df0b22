package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eline/internal/models"
	"eline/internal/store"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var (
	ErrUnknownBarberCode = fmt.Errorf("invalid barber code: %w", store.ErrInvalidCredentials)
	ErrWrongPassword     = fmt.Errorf("invalid password: %w", store.ErrInvalidCredentials)
	ErrShopInactive      = fmt.Errorf("shop is not active: %w", store.ErrAccountDisabled)
)

// Store is the part of the persistence layer logins need.
type Store interface {
	FindBusinessByBarberCode(ctx context.Context, code string) (models.Business, error)
	CountAdmins(ctx context.Context) (int, error)
	CreateAdmin(ctx context.Context, admin models.Admin) (models.Admin, error)
	FindAdminByEmail(ctx context.Context, email string) (models.Admin, error)
	TouchAdminLogin(ctx context.Context, adminID string, at time.Time) error
}

type Session struct {
	Token     string
	ExpiresAt time.Time
}

type BarberSession struct {
	Session
	Business models.Business
}

type AdminSession struct {
	Session
	Admin models.Admin
}

type Service struct {
	store  Store
	tokens *Tokens
	clock  clockwork.Clock
	log    *zap.Logger
}

func NewService(st Store, tokens *Tokens, clock clockwork.Clock, log *zap.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, tokens: tokens, clock: clock, log: log}
}

func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// LoginBarber checks a shop's barber code and password. Shops that are not
// approved are refused with ErrShopInactive before the password is checked.
func (s *Service) LoginBarber(ctx context.Context, barberCode, password string) (BarberSession, error) {
	code := strings.ToUpper(strings.TrimSpace(barberCode))
	if code == "" || password == "" {
		return BarberSession{}, fmt.Errorf("barberCode and password are required: %w", store.ErrValidation)
	}
	business, err := s.store.FindBusinessByBarberCode(ctx, code)
	if errors.Is(err, store.ErrBusinessNotFound) {
		return BarberSession{}, ErrUnknownBarberCode
	}
	if err != nil {
		return BarberSession{}, err
	}
	if business.Status != models.BusinessApproved {
		return BarberSession{}, ErrShopInactive
	}
	if !CheckPassword(business.PasswordHash, password) {
		return BarberSession{}, ErrWrongPassword
	}

	token, expires, err := s.tokens.Issue(business.ID, business.Email, models.RoleBarber)
	if err != nil {
		return BarberSession{}, err
	}
	s.log.Info("barber login", zap.String("business_id", business.ID))
	return BarberSession{Session: Session{Token: token, ExpiresAt: expires}, Business: business}, nil
}

func (s *Service) LoginAdmin(ctx context.Context, email, password string) (AdminSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return AdminSession{}, fmt.Errorf("email and password are required: %w", store.ErrValidation)
	}
	admin, err := s.store.FindAdminByEmail(ctx, email)
	if errors.Is(err, store.ErrAdminNotFound) {
		return AdminSession{}, store.ErrInvalidCredentials
	}
	if err != nil {
		return AdminSession{}, err
	}
	if !admin.Active {
		return AdminSession{}, store.ErrAccountDisabled
	}
	if !CheckPassword(admin.PasswordHash, password) {
		return AdminSession{}, store.ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(admin.ID, admin.Email, admin.Role)
	if err != nil {
		return AdminSession{}, err
	}
	now := s.clock.Now().UTC()
	if err := s.store.TouchAdminLogin(ctx, admin.ID, now); err != nil {
		s.log.Warn("admin last login update failed", zap.String("admin_id", admin.ID), zap.Error(err))
	} else {
		admin.LastLoginAt = &now
	}
	s.log.Info("admin login", zap.String("admin_id", admin.ID), zap.String("role", admin.Role))
	return AdminSession{Session: Session{Token: token, ExpiresAt: expires}, Admin: admin}, nil
}

// EnsureDefaultAdmin creates a super admin when no admin exists yet and
// reports whether it did.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, email, password string) (bool, error) {
	count, err := s.store.CountAdmins(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	admin, err := s.store.CreateAdmin(ctx, models.Admin{
		Name:         "Super Admin",
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		Active:       true,
		CreatedAt:    s.clock.Now().UTC(),
	})
	if errors.Is(err, store.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("default admin created", zap.String("email", admin.Email))
	return true, nil
}

// IsAdminRole reports whether role may use the admin console.
func IsAdminRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleSuperAdmin
}
