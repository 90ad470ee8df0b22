package store

import (
	"context"
	"time"

	"eline/internal/models"

	"github.com/shopspring/decimal"
)

// Mark names a one-shot notification marker on a customer.
type Mark string

const (
	MarkUpcoming Mark = "upcoming"
	MarkFeedback Mark = "feedback"
	MarkLoyalty  Mark = "loyalty"
)

type CreateCustomerInput struct {
	BusinessID    string
	ServiceID     string
	Name          string
	Phone         string
	EstimatedWait int
	JoinedAt      time.Time
}

type TransitionInput struct {
	CustomerID string
	Action     Action
	OccurredAt time.Time
}

// QueueStats summarises the active and serving customers of a business.
type QueueStats struct {
	Count       int
	WaitMinutes int
}

type VisitCredit struct {
	BusinessID string
	Phone      string
	Name       string
	CustomerID string
	Spent      decimal.Decimal
	Points     int
	VisitedAt  time.Time
}

// QueueStore backs the queue engine and the automation sweeps.
type QueueStore interface {
	ResolveBusiness(ctx context.Context, key string) (models.Business, error)
	GetService(ctx context.Context, businessID, serviceID string) (models.Service, error)
	QueueLoad(ctx context.Context, businessID string) (QueueStats, error)
	QueueAhead(ctx context.Context, businessID string, joinedAt time.Time) (QueueStats, error)
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (models.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (models.Customer, error)
	FindCustomerByToken(ctx context.Context, businessID string, token int) (models.Customer, error)
	TransitionCustomer(ctx context.Context, input TransitionInput) (models.Customer, error)
	ListQueue(ctx context.Context, businessID string) ([]models.Customer, error)
	NextActiveAfter(ctx context.Context, businessID string, joinedAt time.Time) (models.Customer, bool, error)

	ListServingNotifiedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Customer, error)
	ListCompletedBetween(ctx context.Context, from, to time.Time, unmarked Mark) ([]models.Customer, error)
	// ListUpcomingUnmarked returns active customers without the mark that have
	// between 1 and maxAhead active or serving customers ahead of them.
	ListUpcomingUnmarked(ctx context.Context, unmarked Mark, maxAhead int) ([]models.Customer, error)
	ClaimMark(ctx context.Context, customerID string, mark Mark, at time.Time) (bool, error)
	// CreditVisit claims the loyalty marker of the customer and, when the claim
	// wins, adds the visit to the ledger. It reports false when already credited.
	CreditVisit(ctx context.Context, credit VisitCredit) (models.CustomerVisit, bool, error)
	LogAutomation(ctx context.Context, entry models.AutomationLog) error
}

// NotificationLogStore records every delivery attempt.
type NotificationLogStore interface {
	LogNotification(ctx context.Context, entry models.NotificationLog) error
}

// AnalyticsStore backs the daily rollup and analytics listings.
type AnalyticsStore interface {
	ListApprovedBusinesses(ctx context.Context) ([]models.Business, error)
	ListCustomersJoinedBetween(ctx context.Context, businessID string, from, to time.Time) ([]models.Customer, error)
	UpsertAnalytics(ctx context.Context, row models.Analytics) (models.Analytics, error)
	ListAnalytics(ctx context.Context, businessID string, since time.Time) ([]models.Analytics, error)
}

type ShopFilter struct {
	Status            models.BusinessStatus
	RequireBarberCode bool
}

type ServiceInput struct {
	Name            string
	Description     string
	Icon            string
	DurationMinutes int
	Price           decimal.Decimal
}

// DirectoryStore serves public shop listings and the barber console.
type DirectoryStore interface {
	Ping(ctx context.Context) error
	GetBusiness(ctx context.Context, businessID string) (models.Business, error)
	FindBusinessByBarberCode(ctx context.Context, code string) (models.Business, error)
	ListShops(ctx context.Context, filter ShopFilter) ([]models.ShopSummary, error)
	ListServices(ctx context.Context, businessID string, activeOnly bool) ([]models.Service, error)
	ReplaceServices(ctx context.Context, businessID string, services []ServiceInput) ([]models.Service, error)
	ListHistory(ctx context.Context, businessID string, since time.Time) ([]models.Customer, error)
	ClearHistory(ctx context.Context, businessID string) (int64, error)
	ListRecentCustomers(ctx context.Context, businessID string, limit int) ([]models.Customer, error)
}

type CreateBusinessInput struct {
	Business models.Business
	Services []ServiceInput
}

type ApproveApplicationInput struct {
	ApplicationID string
	Business      models.Business
	Services      []ServiceInput
	ReviewNotes   string
	ReviewedBy    string
	ReviewedAt    time.Time
}

type ReviewInput struct {
	ApplicationID string
	ReviewNotes   string
	ReviewedBy    string
	ReviewedAt    time.Time
}

type BusinessStatusInput struct {
	BusinessID string
	Action     BusinessAction
	Notes      string
	ActorID    string
	OccurredAt time.Time
}

// AdminStore backs shop onboarding and platform administration.
type AdminStore interface {
	CreateBusiness(ctx context.Context, input CreateBusinessInput) (models.Business, []models.Service, error)
	CreateApplication(ctx context.Context, app models.ShopApplication) (models.ShopApplication, error)
	GetApplication(ctx context.Context, applicationID string) (models.ShopApplication, error)
	ListApplications(ctx context.Context, status models.ApplicationStatus) ([]models.ShopApplication, error)
	ApproveApplication(ctx context.Context, input ApproveApplicationInput) (models.Business, []models.Service, error)
	RejectApplication(ctx context.Context, input ReviewInput) (models.ShopApplication, error)
	UpdateBusinessStatus(ctx context.Context, input BusinessStatusInput) (models.Business, error)
	CountAdmins(ctx context.Context) (int, error)
	CreateAdmin(ctx context.Context, admin models.Admin) (models.Admin, error)
	FindAdminByEmail(ctx context.Context, email string) (models.Admin, error)
	TouchAdminLogin(ctx context.Context, adminID string, at time.Time) error
	DashboardStats(ctx context.Context, dayStart time.Time) (models.DashboardStats, error)
}

// Store is everything the Postgres implementation provides.
type Store interface {
	QueueStore
	NotificationLogStore
	AnalyticsStore
	DirectoryStore
	AdminStore
}
