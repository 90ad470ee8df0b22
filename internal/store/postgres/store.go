package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"eline/internal/models"
	"eline/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	pool       *pgxpool.Pool
	batchLimit int
}

type Options struct {
	// BatchLimit caps how many rows a single sweep query returns.
	BatchLimit int
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	limit := options.BatchLimit
	if limit <= 0 {
		limit = 200
	}
	return &Store{
		pool:       pool,
		batchLimit: limit,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

var customerFields = []string{
	"customer_id", "business_id", "service_id", "token", "name", "phone", "status",
	"estimated_wait", "actual_wait", "joined_at", "approved_at", "started_at",
	"notified_at", "completed_at", "updated_at", "upcoming_notified_at",
	"feedback_sent_at", "loyalty_credited_at",
}

var serviceFields = []string{
	"service_id", "business_id", "name", "COALESCE(%s.description, '')", "COALESCE(%s.icon, '')",
	"duration_minutes", "%s.price::text", "active", "created_at",
}

var businessFields = []string{
	"business_id", "name", "subdomain", "COALESCE(%s.barber_code, '')", "COALESCE(%s.owner_name, '')",
	"COALESCE(%s.phone, '')", "COALESCE(%s.email, '')", "COALESCE(%s.address, '')", "COALESCE(%s.city, '')",
	"COALESCE(%s.state, '')", "COALESCE(%s.pincode, '')", "number_of_barbers", "operating_hours", "status",
	"COALESCE(%s.password_hash, '')", "COALESCE(%s.verification_notes, '')", "verified_at",
	"COALESCE(%s.verified_by, '')", "created_at", "updated_at",
}

// columns qualifies fields with alias. Fields holding %s are expressions
// that already reference the alias.
func columns(alias string, fields []string) string {
	out := make([]string, len(fields))
	for i, field := range fields {
		if strings.Contains(field, "%s") {
			out[i] = strings.ReplaceAll(field, "%s", alias)
			continue
		}
		out[i] = alias + "." + field
	}
	return strings.Join(out, ", ")
}

func customerDest(c *models.Customer) []any {
	return []any{
		&c.ID, &c.BusinessID, &c.ServiceID, &c.Token, &c.Name, &c.Phone, &c.Status,
		&c.EstimatedWait, &c.ActualWait, &c.JoinedAt, &c.ApprovedAt, &c.StartedAt,
		&c.NotifiedAt, &c.CompletedAt, &c.UpdatedAt, &c.Notifications.UpcomingAt,
		&c.Notifications.FeedbackAt, &c.Notifications.LoyaltyCreditedAt,
	}
}

func serviceDest(s *models.Service, price *string) []any {
	return []any{&s.ID, &s.BusinessID, &s.Name, &s.Description, &s.Icon, &s.DurationMinutes, price, &s.Active, &s.CreatedAt}
}

func businessDest(b *models.Business, hours *[]byte) []any {
	return []any{
		&b.ID, &b.Name, &b.Subdomain, &b.BarberCode, &b.OwnerName, &b.Phone, &b.Email,
		&b.Address, &b.City, &b.State, &b.Pincode, &b.NumberOfBarbers, hours, &b.Status,
		&b.PasswordHash, &b.VerificationNotes, &b.VerifiedAt, &b.VerifiedBy, &b.CreatedAt, &b.UpdatedAt,
	}
}

func scanCustomer(row rowScanner) (models.Customer, error) {
	var c models.Customer
	if err := row.Scan(customerDest(&c)...); err != nil {
		return models.Customer{}, err
	}
	return c, nil
}

// scanCustomerWithService reads customerFields followed by serviceFields.
func scanCustomerWithService(row rowScanner) (models.Customer, error) {
	var c models.Customer
	var svc models.Service
	var price string
	dest := append(customerDest(&c), serviceDest(&svc, &price)...)
	if err := row.Scan(dest...); err != nil {
		return models.Customer{}, err
	}
	amount, err := parseDecimal(price)
	if err != nil {
		return models.Customer{}, err
	}
	svc.Price = amount
	c.Service = &svc
	return c, nil
}

// scanCustomerWithServiceAndShop reads customerFields, serviceFields and the
// business name.
func scanCustomerWithServiceAndShop(row rowScanner) (models.Customer, error) {
	var c models.Customer
	var svc models.Service
	var price, shopName string
	dest := append(customerDest(&c), serviceDest(&svc, &price)...)
	dest = append(dest, &shopName)
	if err := row.Scan(dest...); err != nil {
		return models.Customer{}, err
	}
	amount, err := parseDecimal(price)
	if err != nil {
		return models.Customer{}, err
	}
	svc.Price = amount
	c.Service = &svc
	c.Business = &models.Business{ID: c.BusinessID, Name: shopName}
	return c, nil
}

func scanService(row rowScanner) (models.Service, error) {
	var svc models.Service
	var price string
	if err := row.Scan(serviceDest(&svc, &price)...); err != nil {
		return models.Service{}, err
	}
	amount, err := parseDecimal(price)
	if err != nil {
		return models.Service{}, err
	}
	svc.Price = amount
	return svc, nil
}

func scanBusiness(row rowScanner) (models.Business, error) {
	var b models.Business
	var hours []byte
	if err := row.Scan(businessDest(&b, &hours)...); err != nil {
		return models.Business{}, err
	}
	if err := decodeJSON(hours, &b.OperatingHours); err != nil {
		return models.Business{}, err
	}
	return b, nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", value, err)
	}
	return amount, nil
}

func decodeJSON(raw []byte, target any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}

func encodeJSON(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func statusStrings(statuses []models.CustomerStatus) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}
	return out
}
