package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

type OfferedService struct {
	Enabled  bool            `json:"enabled"`
	Price    decimal.Decimal `json:"price"`
	Duration int             `json:"duration"`
}

type ShopApplication struct {
	ID              string                    `json:"id"`
	ShopName        string                    `json:"shopName"`
	OwnerName       string                    `json:"ownerName"`
	Phone           string                    `json:"phone"`
	Email           string                    `json:"email"`
	Address         string                    `json:"address"`
	City            string                    `json:"city"`
	State           string                    `json:"state"`
	Pincode         string                    `json:"pincode"`
	NumberOfBarbers int                       `json:"numberOfBarbers"`
	ServicesOffered map[string]OfferedService `json:"servicesOffered"`
	OperatingHours  OperatingHours            `json:"operatingHours,omitempty"`
	ShopPhotoURL    string                    `json:"shopPhotoUrl,omitempty"`
	DocumentURL     string                    `json:"documentUrl,omitempty"`
	Status          ApplicationStatus         `json:"status"`
	BusinessID      string                    `json:"businessId,omitempty"`
	ReviewNotes     string                    `json:"reviewNotes,omitempty"`
	ReviewedBy      string                    `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time                `json:"reviewedAt,omitempty"`
	SubmittedAt     time.Time                 `json:"submittedAt"`
}

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleBarber     = "barber"
)

type Admin struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Active       bool       `json:"active"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// DashboardStats are the platform totals shown to admins.
type DashboardStats struct {
	TotalShops          int             `json:"totalShops"`
	ActiveShops         int             `json:"activeShops"`
	PendingApplications int             `json:"pendingApplications"`
	TodayCustomers      int             `json:"todayCustomers"`
	TotalCustomers      int             `json:"totalCustomers"`
	TodayRevenue        decimal.Decimal `json:"todayRevenue"`
}
