package postgres

import (
	"context"
	"fmt"
	"time"

	"eline/internal/models"
	"eline/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func markColumn(mark store.Mark) (string, error) {
	switch mark {
	case store.MarkUpcoming:
		return "upcoming_notified_at", nil
	case store.MarkFeedback:
		return "feedback_sent_at", nil
	case store.MarkLoyalty:
		return "loyalty_credited_at", nil
	default:
		return "", fmt.Errorf("unknown notification mark %q", mark)
	}
}

func (s *Store) ListServingNotifiedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Customer, error) {
	if limit <= 0 || limit > s.batchLimit {
		limit = s.batchLimit
	}
	return s.queryCustomers(ctx, customerSelect+`
		WHERE c.status = 'serving' AND c.notified_at < $1
		ORDER BY c.notified_at ASC
		LIMIT $2`, cutoff, limit)
}

func (s *Store) ListCompletedBetween(ctx context.Context, from, to time.Time, unmarked store.Mark) ([]models.Customer, error) {
	column, err := markColumn(unmarked)
	if err != nil {
		return nil, err
	}
	return s.queryCustomersWithShop(ctx, customerShopSelect+`
		WHERE c.status = 'completed' AND c.completed_at >= $1 AND c.completed_at <= $2 AND c.`+column+` IS NULL
		ORDER BY c.completed_at ASC
		LIMIT $3`, from, to, s.batchLimit)
}

func (s *Store) ListUpcomingUnmarked(ctx context.Context, unmarked store.Mark, maxAhead int) ([]models.Customer, error) {
	column, err := markColumn(unmarked)
	if err != nil {
		return nil, err
	}
	return s.queryCustomersWithShop(ctx, customerShopSelect+`
		WHERE c.status = 'active' AND c.`+column+` IS NULL
		AND (
			SELECT COUNT(*) FROM customers a
			WHERE a.business_id = c.business_id AND a.status IN ('active', 'serving') AND a.joined_at < c.joined_at
		) BETWEEN 1 AND $1
		ORDER BY c.joined_at ASC
		LIMIT $2`, maxAhead, s.batchLimit)
}

func (s *Store) ClaimMark(ctx context.Context, customerID string, mark store.Mark, at time.Time) (bool, error) {
	column, err := markColumn(mark)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE customers SET `+column+` = $2
		WHERE customer_id = $1 AND `+column+` IS NULL
	`, customerID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) CreditVisit(ctx context.Context, credit store.VisitCredit) (models.CustomerVisit, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.CustomerVisit{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE customers SET loyalty_credited_at = $2
		WHERE customer_id = $1 AND loyalty_credited_at IS NULL
	`, credit.CustomerID, credit.VisitedAt)
	if err != nil {
		return models.CustomerVisit{}, false, err
	}
	if tag.RowsAffected() == 0 {
		err = tx.Commit(ctx)
		return models.CustomerVisit{}, false, err
	}

	var visit models.CustomerVisit
	var spent string
	row := tx.QueryRow(ctx, `
		INSERT INTO customer_visits (business_id, phone, name, visit_count, loyalty_points, total_spent, last_visit, last_customer_id)
		VALUES ($1, $2, $3, 1, $4, $5::numeric, $6, $7)
		ON CONFLICT (business_id, phone)
		DO UPDATE SET
			name = EXCLUDED.name,
			visit_count = customer_visits.visit_count + 1,
			loyalty_points = customer_visits.loyalty_points + EXCLUDED.loyalty_points,
			total_spent = customer_visits.total_spent + EXCLUDED.total_spent,
			last_visit = EXCLUDED.last_visit,
			last_customer_id = EXCLUDED.last_customer_id
		RETURNING business_id, phone, name, visit_count, loyalty_points, total_spent::text, last_visit, COALESCE(last_customer_id::text, '')
	`, credit.BusinessID, credit.Phone, credit.Name, credit.Points, credit.Spent.String(), credit.VisitedAt, credit.CustomerID)
	if err = row.Scan(&visit.BusinessID, &visit.Phone, &visit.Name, &visit.VisitCount, &visit.LoyaltyPoints, &spent, &visit.LastVisit, &visit.LastCustomerID); err != nil {
		return models.CustomerVisit{}, false, err
	}
	if visit.TotalSpent, err = parseDecimal(spent); err != nil {
		return models.CustomerVisit{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.CustomerVisit{}, false, err
	}
	return visit, true, nil
}

func (s *Store) LogAutomation(ctx context.Context, entry models.AutomationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	var result []byte
	if len(entry.Result) > 0 {
		result = []byte(entry.Result)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO automation_logs (log_id, type, customer_id, status, result, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.Type, nullIfEmpty(entry.CustomerID), entry.Status, result, nullIfEmpty(entry.Error), entry.CreatedAt)
	return err
}

func (s *Store) LogNotification(ctx context.Context, entry models.NotificationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (notification_id, customer_id, phone, message, kind, channel, status, provider_id, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ID, nullIfEmpty(entry.CustomerID), entry.Phone, entry.Message, entry.Kind, entry.Channel, entry.Status,
		nullIfEmpty(entry.ProviderID), nullIfEmpty(entry.Error), entry.SentAt)
	return err
}
