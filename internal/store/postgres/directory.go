package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"eline/internal/models"
	"eline/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) GetBusiness(ctx context.Context, businessID string) (models.Business, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+columns("b", businessFields)+" FROM businesses b WHERE b.business_id = $1", businessID)
	business, err := scanBusiness(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Business{}, store.ErrBusinessNotFound
		}
		return models.Business{}, err
	}
	return business, nil
}

func (s *Store) FindBusinessByBarberCode(ctx context.Context, code string) (models.Business, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+columns("b", businessFields)+" FROM businesses b WHERE b.barber_code = upper($1)", strings.TrimSpace(code))
	business, err := scanBusiness(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Business{}, store.ErrBusinessNotFound
		}
		return models.Business{}, err
	}
	return business, nil
}

func (s *Store) ListShops(ctx context.Context, filter store.ShopFilter) ([]models.ShopSummary, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+columns("b", businessFields)+`,
			(SELECT COUNT(*) FROM services s WHERE s.business_id = b.business_id AND s.active),
			(SELECT COUNT(*) FROM customers c WHERE c.business_id = b.business_id AND c.status IN ('pending', 'active', 'serving')),
			(SELECT COUNT(*) FROM customers c WHERE c.business_id = b.business_id)
		FROM businesses b
		WHERE ($1 = '' OR b.status = $1) AND (NOT $2 OR b.barber_code IS NOT NULL)
		ORDER BY b.created_at DESC`, string(filter.Status), filter.RequireBarberCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shops []models.ShopSummary
	for rows.Next() {
		var shop models.ShopSummary
		var hours []byte
		dest := append(businessDest(&shop.Business, &hours), &shop.ActiveServices, &shop.QueueLength, &shop.TotalCustomers)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if err := decodeJSON(hours, &shop.OperatingHours); err != nil {
			return nil, err
		}
		shops = append(shops, shop)
	}
	return shops, rows.Err()
}

func (s *Store) ListServices(ctx context.Context, businessID string, activeOnly bool) ([]models.Service, error) {
	return listServices(ctx, s.pool, businessID, activeOnly)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listServices(ctx context.Context, q querier, businessID string, activeOnly bool) ([]models.Service, error) {
	rows, err := q.Query(ctx, "SELECT "+columns("s", serviceFields)+`
		FROM services s
		WHERE s.business_id = $1 AND (NOT $2 OR s.active)
		ORDER BY s.name ASC`, businessID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// ReplaceServices deactivates the whole offering, then reactivates or creates
// each named service.
func (s *Store) ReplaceServices(ctx context.Context, businessID string, services []store.ServiceInput) ([]models.Service, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `UPDATE services SET active = false, updated_at = now() WHERE business_id = $1`, businessID); err != nil {
		return nil, err
	}

	for _, input := range services {
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx, `
			UPDATE services
			SET duration_minutes = $3, price = $4::numeric, active = true, updated_at = now(),
				description = COALESCE($5, description), icon = COALESCE($6, icon)
			WHERE business_id = $1 AND name = $2
		`, businessID, input.Name, input.DurationMinutes, input.Price.String(), nullIfEmpty(input.Description), nullIfEmpty(input.Icon))
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() > 0 {
			continue
		}
		if _, err = insertService(ctx, tx, businessID, input); err != nil {
			return nil, err
		}
	}

	out, err := listServices(ctx, tx, businessID, false)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func insertService(ctx context.Context, tx pgx.Tx, businessID string, input store.ServiceInput) (models.Service, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO services (service_id, business_id, name, description, icon, duration_minutes, price, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, true)
		RETURNING `+columns("services", serviceFields),
		uuid.NewString(), businessID, input.Name, nullIfEmpty(input.Description), nullIfEmpty(input.Icon), input.DurationMinutes, input.Price.String())
	return scanService(row)
}

func (s *Store) ListHistory(ctx context.Context, businessID string, since time.Time) ([]models.Customer, error) {
	return s.queryCustomers(ctx, customerSelect+`
		WHERE c.business_id = $1 AND c.status IN ('completed', 'cancelled') AND c.updated_at >= $2
		ORDER BY c.updated_at DESC`, businessID, since)
}

func (s *Store) ClearHistory(ctx context.Context, businessID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM customers
		WHERE business_id = $1 AND status IN ('completed', 'cancelled')
	`, businessID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ListRecentCustomers(ctx context.Context, businessID string, limit int) ([]models.Customer, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryCustomersWithShop(ctx, customerShopSelect+`
		WHERE ($1 = '' OR c.business_id::text = $1)
		ORDER BY c.joined_at DESC
		LIMIT $2`, businessID, limit)
}
