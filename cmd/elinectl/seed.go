package main

import (
	"context"
	"errors"

	"eline/internal/auth"
	"eline/internal/models"
	"eline/internal/store"

	"github.com/shopspring/decimal"
)

const (
	demoSubdomain  = "demo"
	demoBarberCode = "BARBER-DEMO01"
)

type demoStore interface {
	ResolveBusiness(ctx context.Context, key string) (models.Business, error)
	CreateBusiness(ctx context.Context, input store.CreateBusinessInput) (models.Business, []models.Service, error)
}

// seedDemo creates the demo salon unless a business already answers to the
// demo subdomain.
func seedDemo(ctx context.Context, st demoStore, password string) (models.Business, bool, error) {
	existing, err := st.ResolveBusiness(ctx, demoSubdomain)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrBusinessNotFound) {
		return models.Business{}, false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.Business{}, false, err
	}
	business, _, err := st.CreateBusiness(ctx, demoBusiness(hash))
	if errors.Is(err, store.ErrDuplicate) {
		existing, lookupErr := st.ResolveBusiness(ctx, demoSubdomain)
		return existing, false, lookupErr
	}
	if err != nil {
		return models.Business{}, false, err
	}
	return business, true, nil
}

func demoBusiness(passwordHash string) store.CreateBusinessInput {
	weekday := models.DayHours{Open: "09:00", Close: "18:00"}
	return store.CreateBusinessInput{
		Business: models.Business{
			Name:            "Demo Salon",
			Subdomain:       demoSubdomain,
			BarberCode:      demoBarberCode,
			OwnerName:       "Demo Owner",
			Phone:           "+1234567890",
			Email:           "demo@eline.app",
			Address:         "123 Main Street, Demo City",
			City:            "Demo City",
			State:           "Demo State",
			Pincode:         "123456",
			NumberOfBarbers: 2,
			Status:          models.BusinessApproved,
			PasswordHash:    passwordHash,
			OperatingHours: models.OperatingHours{
				"monday":    weekday,
				"tuesday":   weekday,
				"wednesday": weekday,
				"thursday":  weekday,
				"friday":    weekday,
				"saturday":  {Open: "10:00", Close: "16:00"},
				"sunday":    {Closed: true},
			},
		},
		Services: []store.ServiceInput{
			{Name: "Haircut", Icon: "✂️", DurationMinutes: 25, Price: decimal.NewFromInt(25)},
			{Name: "Hair Spa", Icon: "💆", DurationMinutes: 45, Price: decimal.NewFromInt(45)},
			{Name: "Beard Trim", Icon: "🪒", DurationMinutes: 15, Price: decimal.NewFromInt(15)},
			{Name: "Hair Color", Icon: "🎨", DurationMinutes: 60, Price: decimal.NewFromInt(60)},
			{Name: "Consultation", Icon: "👨‍⚕️", DurationMinutes: 15, Price: decimal.Zero},
			{Name: "Blood Test", Icon: "💉", DurationMinutes: 10, Price: decimal.NewFromInt(30)},
		},
	}
}
