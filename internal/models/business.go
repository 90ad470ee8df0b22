package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BusinessStatus string

const (
	BusinessPending   BusinessStatus = "pending"
	BusinessApproved  BusinessStatus = "approved"
	BusinessSuspended BusinessStatus = "suspended"
	BusinessRejected  BusinessStatus = "rejected"
)

type DayHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// OperatingHours is keyed by lower-case weekday name.
type OperatingHours map[string]DayHours

type Business struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Subdomain         string         `json:"subdomain"`
	BarberCode        string         `json:"barberCode,omitempty"`
	OwnerName         string         `json:"ownerName,omitempty"`
	Phone             string         `json:"phone,omitempty"`
	Email             string         `json:"email,omitempty"`
	Address           string         `json:"address,omitempty"`
	City              string         `json:"city,omitempty"`
	State             string         `json:"state,omitempty"`
	Pincode           string         `json:"pincode,omitempty"`
	NumberOfBarbers   int            `json:"numberOfBarbers"`
	OperatingHours    OperatingHours `json:"operatingHours,omitempty"`
	Status            BusinessStatus `json:"status"`
	PasswordHash      string         `json:"-"`
	VerificationNotes string         `json:"verificationNotes,omitempty"`
	VerifiedAt        *time.Time     `json:"verifiedAt,omitempty"`
	VerifiedBy        string         `json:"verifiedBy,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

type Service struct {
	ID              string          `json:"id"`
	BusinessID      string          `json:"businessId"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Icon            string          `json:"icon,omitempty"`
	DurationMinutes int             `json:"duration"`
	Price           decimal.Decimal `json:"price"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ShopSummary is a business with the counters shown in listings.
type ShopSummary struct {
	Business
	ActiveServices int `json:"activeServices"`
	QueueLength    int `json:"queueLength"`
	TotalCustomers int `json:"totalCustomers,omitempty"`
}
