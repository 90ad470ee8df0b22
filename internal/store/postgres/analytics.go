package postgres

import (
	"context"
	"time"

	"eline/internal/models"

	"github.com/google/uuid"
)

func (s *Store) ListApprovedBusinesses(ctx context.Context) ([]models.Business, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+columns("b", businessFields)+`
		FROM businesses b
		WHERE b.status = 'approved'
		ORDER BY b.created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var businesses []models.Business
	for rows.Next() {
		business, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		businesses = append(businesses, business)
	}
	return businesses, rows.Err()
}

func (s *Store) ListCustomersJoinedBetween(ctx context.Context, businessID string, from, to time.Time) ([]models.Customer, error) {
	return s.queryCustomers(ctx, customerSelect+`
		WHERE c.business_id = $1 AND c.joined_at >= $2 AND c.joined_at < $3
		ORDER BY c.joined_at ASC`, businessID, from, to)
}

func (s *Store) UpsertAnalytics(ctx context.Context, row models.Analytics) (models.Analytics, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	metadata, err := encodeJSON(row.Metadata)
	if err != nil {
		return models.Analytics{}, err
	}
	result := s.pool.QueryRow(ctx, `
		INSERT INTO analytics (analytics_id, business_id, date, total_customers, completed_services, cancelled_services, no_shows, avg_wait_time, peak_hour, revenue, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11)
		ON CONFLICT (business_id, date)
		DO UPDATE SET
			total_customers = EXCLUDED.total_customers,
			completed_services = EXCLUDED.completed_services,
			cancelled_services = EXCLUDED.cancelled_services,
			no_shows = EXCLUDED.no_shows,
			avg_wait_time = EXCLUDED.avg_wait_time,
			peak_hour = EXCLUDED.peak_hour,
			revenue = EXCLUDED.revenue,
			metadata = EXCLUDED.metadata,
			updated_at = now()
		RETURNING analytics_id
	`, row.ID, row.BusinessID, row.Date, row.TotalCustomers, row.CompletedServices, row.CancelledServices, row.NoShows,
		row.AvgWaitTime, row.PeakHour, row.Revenue.String(), metadata)
	if err := result.Scan(&row.ID); err != nil {
		return models.Analytics{}, err
	}
	return row, nil
}

func (s *Store) ListAnalytics(ctx context.Context, businessID string, since time.Time) ([]models.Analytics, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT analytics_id, business_id, date, total_customers, completed_services, cancelled_services, no_shows,
			avg_wait_time, peak_hour, revenue::text, metadata
		FROM analytics
		WHERE ($1 = '' OR business_id::text = $1) AND date >= $2::date
		ORDER BY date DESC, business_id
	`, businessID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Analytics
	for rows.Next() {
		var row models.Analytics
		var revenue string
		var metadata []byte
		if err := rows.Scan(&row.ID, &row.BusinessID, &row.Date, &row.TotalCustomers, &row.CompletedServices, &row.CancelledServices,
			&row.NoShows, &row.AvgWaitTime, &row.PeakHour, &revenue, &metadata); err != nil {
			return nil, err
		}
		if row.Revenue, err = parseDecimal(revenue); err != nil {
			return nil, err
		}
		if err := decodeJSON(metadata, &row.Metadata); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
