package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Analytics struct {
	ID                string            `json:"id"`
	BusinessID        string            `json:"businessId"`
	Date              time.Time         `json:"date"`
	TotalCustomers    int               `json:"totalCustomers"`
	CompletedServices int               `json:"completedServices"`
	CancelledServices int               `json:"cancelledServices"`
	NoShows           int               `json:"noShows"`
	AvgWaitTime       *float64          `json:"avgWaitTime"`
	PeakHour          *int              `json:"peakHour"`
	Revenue           decimal.Decimal   `json:"revenue"`
	Metadata          AnalyticsMetadata `json:"metadata"`
}

type AnalyticsMetadata struct {
	HourlyDistribution map[int]int `json:"hourlyDistribution"`
}

// PlatformDay aggregates analytics rows of every business for one date.
type PlatformDay struct {
	Date              time.Time       `json:"date"`
	TotalCustomers    int             `json:"totalCustomers"`
	CompletedServices int             `json:"completedServices"`
	Revenue           decimal.Decimal `json:"revenue"`
	AvgWaitTime       *float64        `json:"avgWaitTime"`
}

// CustomerVisit is the loyalty ledger row of one phone number at one business.
type CustomerVisit struct {
	BusinessID     string          `json:"businessId"`
	Phone          string          `json:"phone"`
	Name           string          `json:"name"`
	VisitCount     int             `json:"visitCount"`
	LoyaltyPoints  int             `json:"loyaltyPoints"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	LastVisit      time.Time       `json:"lastVisit"`
	LastCustomerID string          `json:"lastCustomerId"`
}
