// Package onboarding handles shop applications and the admin review flow
// that turns an approved application into a live business.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"eline/internal/auth"
	"eline/internal/models"
	"eline/internal/notify"
	"eline/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultServiceDuration = 30
	maxCodeAttempts        = 5
)

// Store is the persistence the review flow needs.
type Store interface {
	CreateApplication(ctx context.Context, app models.ShopApplication) (models.ShopApplication, error)
	GetApplication(ctx context.Context, applicationID string) (models.ShopApplication, error)
	ListApplications(ctx context.Context, status models.ApplicationStatus) ([]models.ShopApplication, error)
	ApproveApplication(ctx context.Context, input store.ApproveApplicationInput) (models.Business, []models.Service, error)
	RejectApplication(ctx context.Context, input store.ReviewInput) (models.ShopApplication, error)
	UpdateBusinessStatus(ctx context.Context, input store.BusinessStatusInput) (models.Business, error)
}

type ApplyInput struct {
	ShopName        string                           `json:"shopName" validate:"required,max=120"`
	OwnerName       string                           `json:"ownerName" validate:"required,max=120"`
	Phone           string                           `json:"phone" validate:"required,max=32"`
	Email           string                           `json:"email" validate:"required,email"`
	Address         string                           `json:"address" validate:"required"`
	City            string                           `json:"city" validate:"required"`
	State           string                           `json:"state" validate:"required"`
	Pincode         string                           `json:"pincode" validate:"required,max=12"`
	NumberOfBarbers int                              `json:"numberOfBarbers" validate:"gte=1,lte=100"`
	ServicesOffered map[string]models.OfferedService `json:"servicesOffered"`
	OperatingHours  models.OperatingHours            `json:"operatingHours"`
	ShopPhotoURL    string                           `json:"shopPhotoUrl" validate:"omitempty,url"`
	DocumentURL     string                           `json:"documentUrl" validate:"omitempty,url"`
}

// Approval is what the reviewing admin sees once; the password is not stored
// in clear anywhere.
type Approval struct {
	Business     models.Business
	Services     []models.Service
	BarberCode   string
	TempPassword string
}

type Service struct {
	store     Store
	sender    notify.Sender
	templates notify.Templates
	clock     clockwork.Clock
	log       *zap.Logger
	validate  *validator.Validate
	random    io.Reader
}

func New(st Store, sender notify.Sender, templates notify.Templates, clock clockwork.Clock, log *zap.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
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
	return &Service{
		store:     st,
		sender:    sender,
		templates: templates,
		clock:     clock,
		log:       log,
		validate:  validate,
	}
}

func (s *Service) Apply(ctx context.Context, input ApplyInput) (models.ShopApplication, error) {
	input.ShopName = strings.TrimSpace(input.ShopName)
	input.OwnerName = strings.TrimSpace(input.OwnerName)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := s.validate.Struct(input); err != nil {
		return models.ShopApplication{}, fmt.Errorf("%s: %w", describe(err), store.ErrValidation)
	}

	app, err := s.store.CreateApplication(ctx, models.ShopApplication{
		ShopName:        input.ShopName,
		OwnerName:       input.OwnerName,
		Phone:           input.Phone,
		Email:           input.Email,
		Address:         strings.TrimSpace(input.Address),
		City:            strings.TrimSpace(input.City),
		State:           strings.TrimSpace(input.State),
		Pincode:         strings.TrimSpace(input.Pincode),
		NumberOfBarbers: input.NumberOfBarbers,
		ServicesOffered: input.ServicesOffered,
		OperatingHours:  input.OperatingHours,
		ShopPhotoURL:    input.ShopPhotoURL,
		DocumentURL:     input.DocumentURL,
		Status:          models.ApplicationPending,
		SubmittedAt:     s.clock.Now().UTC(),
	})
	if err != nil {
		return models.ShopApplication{}, fmt.Errorf("create application: %w", err)
	}
	s.log.Info("shop application received", zap.String("application_id", app.ID), zap.String("shop", app.ShopName))
	s.notify(ctx, s.templates.ApplicationReceived(app.Phone, app.ShopName))
	return app, nil
}

// List returns applications with the given status, pending when empty.
func (s *Service) List(ctx context.Context, status models.ApplicationStatus) ([]models.ShopApplication, error) {
	if status == "" {
		status = models.ApplicationPending
	}
	apps, err := s.store.ListApplications(ctx, status)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []models.ShopApplication{}
	}
	return apps, nil
}

func (s *Service) Get(ctx context.Context, applicationID string) (models.ShopApplication, error) {
	return s.store.GetApplication(ctx, applicationID)
}

// Approve creates an approved business from a pending application with a
// fresh barber code, temporary password and subdomain. Code collisions are
// retried.
func (s *Service) Approve(ctx context.Context, applicationID, adminID, notes string) (Approval, error) {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return Approval{}, err
	}
	if app.Status != models.ApplicationPending {
		return Approval{}, fmt.Errorf("application is %s: %w", app.Status, store.ErrInvalidState)
	}

	password, err := TempPassword(s.random)
	if err != nil {
		return Approval{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Approval{}, err
	}
	services := offeredServices(app.ServicesOffered)
	now := s.clock.Now().UTC()

	for attempt := 1; ; attempt++ {
		code, err := BarberCode(s.random)
		if err != nil {
			return Approval{}, err
		}
		subdomain, err := Subdomain(s.random, app.ShopName)
		if err != nil {
			return Approval{}, err
		}
		business, created, err := s.store.ApproveApplication(ctx, store.ApproveApplicationInput{
			ApplicationID: app.ID,
			Business: models.Business{
				Name:            app.ShopName,
				Subdomain:       subdomain,
				BarberCode:      code,
				OwnerName:       app.OwnerName,
				Phone:           app.Phone,
				Email:           app.Email,
				Address:         app.Address,
				City:            app.City,
				State:           app.State,
				Pincode:         app.Pincode,
				NumberOfBarbers: app.NumberOfBarbers,
				OperatingHours:  app.OperatingHours,
				Status:          models.BusinessApproved,
				PasswordHash:    hash,
				VerifiedAt:      &now,
				VerifiedBy:      adminID,
			},
			Services:    services,
			ReviewNotes: notes,
			ReviewedBy:  adminID,
			ReviewedAt:  now,
		})
		if errors.Is(err, store.ErrDuplicate) && attempt < maxCodeAttempts {
			s.log.Warn("barber code or subdomain taken, retrying", zap.String("application_id", app.ID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return Approval{}, fmt.Errorf("approve application: %w", err)
		}

		s.log.Info("shop approved",
			zap.String("application_id", app.ID),
			zap.String("business_id", business.ID),
			zap.String("admin_id", adminID))
		s.notify(ctx, s.templates.ApplicationApproved(app.Phone, app.ShopName, code, password))
		return Approval{Business: business, Services: created, BarberCode: code, TempPassword: password}, nil
	}
}

func (s *Service) Reject(ctx context.Context, applicationID, adminID, reason, notes string) (models.ShopApplication, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.ShopApplication{}, fmt.Errorf("reason is required: %w", store.ErrValidation)
	}
	app, err := s.store.RejectApplication(ctx, store.ReviewInput{
		ApplicationID: applicationID,
		ReviewNotes:   reason + "\n\n" + strings.TrimSpace(notes),
		ReviewedBy:    adminID,
		ReviewedAt:    s.clock.Now().UTC(),
	})
	if err != nil {
		return models.ShopApplication{}, err
	}
	s.log.Info("shop application rejected", zap.String("application_id", app.ID), zap.String("admin_id", adminID))
	s.notify(ctx, s.templates.ApplicationRejected(app.Phone, app.ShopName, reason))
	return app, nil
}

func (s *Service) Suspend(ctx context.Context, businessID, adminID, reason string) (models.Business, error) {
	return s.setStatus(ctx, businessID, adminID, store.BusinessSuspend, strings.TrimSpace(reason))
}

func (s *Service) Reactivate(ctx context.Context, businessID, adminID string) (models.Business, error) {
	return s.setStatus(ctx, businessID, adminID, store.BusinessReactivate, "")
}

func (s *Service) setStatus(ctx context.Context, businessID, adminID string, action store.BusinessAction, notes string) (models.Business, error) {
	business, err := s.store.UpdateBusinessStatus(ctx, store.BusinessStatusInput{
		BusinessID: businessID,
		Action:     action,
		Notes:      notes,
		ActorID:    adminID,
		OccurredAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return models.Business{}, err
	}
	s.log.Info("business status changed",
		zap.String("business_id", business.ID),
		zap.String("status", string(business.Status)),
		zap.String("admin_id", adminID))
	return business, nil
}

func (s *Service) notify(ctx context.Context, msg notify.Message) {
	if s.sender == nil || msg.Phone == "" {
		return
	}
	s.sender.Send(ctx, msg)
}

// offeredServices keeps the enabled entries in name order.
func offeredServices(offered map[string]models.OfferedService) []store.ServiceInput {
	names := make([]string, 0, len(offered))
	for name, svc := range offered {
		if svc.Enabled && strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]store.ServiceInput, 0, len(names))
	for _, name := range names {
		svc := offered[name]
		duration := svc.Duration
		if duration <= 0 {
			duration = defaultServiceDuration
		}
		price := svc.Price
		if price.IsNegative() {
			price = decimal.Zero
		}
		out = append(out, store.ServiceInput{Name: strings.TrimSpace(name), DurationMinutes: duration, Price: price})
	}
	return out
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(fields, ", ")
}
