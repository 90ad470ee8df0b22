package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eline/internal/models"
	"eline/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	customerSelect = "SELECT " + columns("c", customerFields) + ", " + columns("s", serviceFields) + `
		FROM customers c
		JOIN services s ON s.service_id = c.service_id`
	customerShopSelect = "SELECT " + columns("c", customerFields) + ", " + columns("s", serviceFields) + `, b.name
		FROM customers c
		JOIN services s ON s.service_id = c.service_id
		JOIN businesses b ON b.business_id = c.business_id`
)

func (s *Store) ResolveBusiness(ctx context.Context, key string) (models.Business, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return models.Business{}, store.ErrBusinessNotFound
	}
	var row pgx.Row
	if _, err := uuid.Parse(key); err == nil {
		row = s.pool.QueryRow(ctx, "SELECT "+columns("b", businessFields)+" FROM businesses b WHERE b.business_id = $1", key)
	} else {
		row = s.pool.QueryRow(ctx, "SELECT "+columns("b", businessFields)+`
			FROM businesses b
			WHERE lower(b.subdomain) = lower($1) OR b.barber_code = upper($1)
			ORDER BY b.created_at
			LIMIT 1`, key)
	}
	business, err := scanBusiness(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Business{}, store.ErrBusinessNotFound
		}
		return models.Business{}, err
	}
	return business, nil
}

func (s *Store) GetService(ctx context.Context, businessID, serviceID string) (models.Service, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+columns("s", serviceFields)+`
		FROM services s
		WHERE s.service_id = $1 AND s.business_id = $2`, serviceID, businessID)
	svc, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, store.ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return svc, nil
}

func (s *Store) QueueLoad(ctx context.Context, businessID string) (store.QueueStats, error) {
	var stats store.QueueStats
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(s.duration_minutes), 0)
		FROM customers c
		JOIN services s ON s.service_id = c.service_id
		WHERE c.business_id = $1 AND c.status IN ('active', 'serving')
	`, businessID)
	if err := row.Scan(&stats.Count, &stats.WaitMinutes); err != nil {
		return store.QueueStats{}, err
	}
	return stats, nil
}

func (s *Store) QueueAhead(ctx context.Context, businessID string, joinedAt time.Time) (store.QueueStats, error) {
	var stats store.QueueStats
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(s.duration_minutes), 0)
		FROM customers c
		JOIN services s ON s.service_id = c.service_id
		WHERE c.business_id = $1 AND c.status IN ('active', 'serving') AND c.joined_at < $2
	`, businessID, joinedAt)
	if err := row.Scan(&stats.Count, &stats.WaitMinutes); err != nil {
		return store.QueueStats{}, err
	}
	return stats, nil
}

func (s *Store) CreateCustomer(ctx context.Context, input store.CreateCustomerInput) (models.Customer, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Customer{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	token, err := nextToken(ctx, tx, input.BusinessID)
	if err != nil {
		return models.Customer{}, err
	}

	joinedAt := input.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO customers (customer_id, business_id, service_id, token, name, phone, status, estimated_wait, joined_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $8, $8)
		RETURNING `+strings.Join(customerFields, ", "),
		uuid.NewString(), input.BusinessID, input.ServiceID, token, input.Name, input.Phone, input.EstimatedWait, joinedAt)
	customer, err := scanCustomer(row)
	if err != nil {
		return models.Customer{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Customer{}, err
	}
	return customer, nil
}

// nextToken bumps the per-business sequence. The first call for a business
// seeds it from the highest token already stored.
func nextToken(ctx context.Context, tx pgx.Tx, businessID string) (int, error) {
	var token int
	row := tx.QueryRow(ctx, `
		INSERT INTO token_sequences (business_id, last_token)
		VALUES ($1, COALESCE((SELECT MAX(token) FROM customers WHERE business_id = $1), 0) + 1)
		ON CONFLICT (business_id)
		DO UPDATE SET last_token = token_sequences.last_token + 1
		RETURNING last_token
	`, businessID)
	if err := row.Scan(&token); err != nil {
		return 0, fmt.Errorf("next token: %w", err)
	}
	return token, nil
}

func (s *Store) GetCustomer(ctx context.Context, customerID string) (models.Customer, error) {
	row := s.pool.QueryRow(ctx, customerSelect+" WHERE c.customer_id = $1", customerID)
	customer, err := scanCustomerWithService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, store.ErrCustomerNotFound
		}
		return models.Customer{}, err
	}
	return customer, nil
}

func (s *Store) FindCustomerByToken(ctx context.Context, businessID string, token int) (models.Customer, error) {
	row := s.pool.QueryRow(ctx, customerSelect+`
		WHERE c.token = $1 AND ($2 = '' OR c.business_id::text = $2)
		ORDER BY c.joined_at DESC
		LIMIT 1`, token, businessID)
	customer, err := scanCustomerWithService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, store.ErrCustomerNotFound
		}
		return models.Customer{}, err
	}
	return customer, nil
}

func (s *Store) TransitionCustomer(ctx context.Context, input store.TransitionInput) (models.Customer, error) {
	to, ok := store.TargetStatus(input.Action)
	if !ok {
		return models.Customer{}, store.ErrInvalidState
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	var set string
	switch input.Action {
	case store.ActionApprove:
		set = "approved_at = $2"
	case store.ActionStart:
		set = "started_at = $2, notified_at = $2, actual_wait = GREATEST(0, FLOOR(EXTRACT(EPOCH FROM ($2::timestamptz - joined_at)) / 60))::int"
	default:
		set = "completed_at = $2"
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE customers
		SET status = $1, updated_at = $2, `+set+`
		WHERE customer_id = $3 AND status = ANY($4::text[])
		RETURNING `+strings.Join(customerFields, ", "),
		string(to), occurredAt, input.CustomerID, statusStrings(store.AllowedFrom(input.Action)))
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			exists, err := customerExists(ctx, s, input.CustomerID)
			if err != nil {
				return models.Customer{}, err
			}
			if !exists {
				return models.Customer{}, store.ErrCustomerNotFound
			}
			return models.Customer{}, store.ErrInvalidState
		}
		return models.Customer{}, err
	}
	return customer, nil
}

func customerExists(ctx context.Context, s *Store, customerID string) (bool, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE customer_id = $1)`, customerID)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) ListQueue(ctx context.Context, businessID string) ([]models.Customer, error) {
	return s.queryCustomers(ctx, customerSelect+`
		WHERE c.business_id = $1 AND c.status <> 'completed'
		ORDER BY c.joined_at ASC`, businessID)
}

func (s *Store) NextActiveAfter(ctx context.Context, businessID string, joinedAt time.Time) (models.Customer, bool, error) {
	row := s.pool.QueryRow(ctx, customerSelect+`
		WHERE c.business_id = $1 AND c.status = 'active' AND c.joined_at > $2
		ORDER BY c.joined_at ASC
		LIMIT 1`, businessID, joinedAt)
	customer, err := scanCustomerWithService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, false, nil
		}
		return models.Customer{}, false, err
	}
	return customer, true, nil
}

func (s *Store) queryCustomers(ctx context.Context, query string, args ...any) ([]models.Customer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		customer, err := scanCustomerWithService(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

func (s *Store) queryCustomersWithShop(ctx context.Context, query string, args ...any) ([]models.Customer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		customer, err := scanCustomerWithServiceAndShop(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}
