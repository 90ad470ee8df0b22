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

const applicationColumns = `application_id, shop_name, owner_name, phone, email, address, city, state, pincode,
	number_of_barbers, services_offered, operating_hours, COALESCE(shop_photo_url, ''), COALESCE(document_url, ''),
	status, COALESCE(business_id::text, ''), COALESCE(review_notes, ''), COALESCE(reviewed_by, ''), reviewed_at, submitted_at`

const adminColumns = `admin_id, name, email, password_hash, role, active, last_login_at, created_at`

func (s *Store) CreateBusiness(ctx context.Context, input store.CreateBusinessInput) (models.Business, []models.Service, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Business{}, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	business, services, err := insertBusinessWithServices(ctx, tx, input.Business, input.Services)
	if err != nil {
		return models.Business{}, nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Business{}, nil, err
	}
	return business, services, nil
}

func insertBusinessWithServices(ctx context.Context, tx pgx.Tx, b models.Business, inputs []store.ServiceInput) (models.Business, []models.Service, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = models.BusinessPending
	}
	hours, err := encodeJSON(b.OperatingHours)
	if err != nil {
		return models.Business{}, nil, err
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO businesses (business_id, name, subdomain, barber_code, owner_name, phone, email, address, city, state, pincode,
			number_of_barbers, operating_hours, status, password_hash, verification_notes, verified_at, verified_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING `+columns("businesses", businessFields),
		b.ID, b.Name, b.Subdomain, nullIfEmpty(b.BarberCode), nullIfEmpty(b.OwnerName), nullIfEmpty(b.Phone), nullIfEmpty(b.Email),
		nullIfEmpty(b.Address), nullIfEmpty(b.City), nullIfEmpty(b.State), nullIfEmpty(b.Pincode), b.NumberOfBarbers, hours,
		string(b.Status), nullIfEmpty(b.PasswordHash), nullIfEmpty(b.VerificationNotes), b.VerifiedAt, nullIfEmpty(b.VerifiedBy))
	business, err := scanBusiness(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Business{}, nil, fmt.Errorf("insert business %q: %w", b.Subdomain, store.ErrDuplicate)
		}
		return models.Business{}, nil, err
	}

	services := make([]models.Service, 0, len(inputs))
	for _, input := range inputs {
		svc, err := insertService(ctx, tx, business.ID, input)
		if err != nil {
			return models.Business{}, nil, err
		}
		services = append(services, svc)
	}
	return business, services, nil
}

func (s *Store) CreateApplication(ctx context.Context, app models.ShopApplication) (models.ShopApplication, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = time.Now().UTC()
	}
	offered, err := encodeJSON(app.ServicesOffered)
	if err != nil {
		return models.ShopApplication{}, err
	}
	hours, err := encodeJSON(app.OperatingHours)
	if err != nil {
		return models.ShopApplication{}, err
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO shop_applications (application_id, shop_name, owner_name, phone, email, address, city, state, pincode,
			number_of_barbers, services_offered, operating_hours, shop_photo_url, document_url, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 'pending', $15)
		RETURNING `+applicationColumns,
		app.ID, app.ShopName, app.OwnerName, app.Phone, app.Email, app.Address, app.City, app.State, app.Pincode,
		app.NumberOfBarbers, offered, hours, nullIfEmpty(app.ShopPhotoURL), nullIfEmpty(app.DocumentURL), app.SubmittedAt)
	return scanApplication(row)
}

func (s *Store) GetApplication(ctx context.Context, applicationID string) (models.ShopApplication, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+applicationColumns+" FROM shop_applications WHERE application_id = $1", applicationID)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ShopApplication{}, store.ErrApplicationNotFound
		}
		return models.ShopApplication{}, err
	}
	return app, nil
}

func (s *Store) ListApplications(ctx context.Context, status models.ApplicationStatus) ([]models.ShopApplication, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+applicationColumns+`
		FROM shop_applications
		WHERE ($1 = '' OR status = $1)
		ORDER BY submitted_at DESC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []models.ShopApplication
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (s *Store) ApproveApplication(ctx context.Context, input store.ApproveApplicationInput) (models.Business, []models.Service, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Business{}, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var status string
	row := tx.QueryRow(ctx, `SELECT status FROM shop_applications WHERE application_id = $1 FOR UPDATE`, input.ApplicationID)
	if err = row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrApplicationNotFound
		}
		return models.Business{}, nil, err
	}
	if status != string(models.ApplicationPending) {
		err = store.ErrInvalidState
		return models.Business{}, nil, err
	}

	business, services, err := insertBusinessWithServices(ctx, tx, input.Business, input.Services)
	if err != nil {
		return models.Business{}, nil, err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE shop_applications
		SET status = 'approved', business_id = $2, review_notes = $3, reviewed_by = $4, reviewed_at = $5
		WHERE application_id = $1
	`, input.ApplicationID, business.ID, nullIfEmpty(input.ReviewNotes), nullIfEmpty(input.ReviewedBy), input.ReviewedAt); err != nil {
		return models.Business{}, nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Business{}, nil, err
	}
	return business, services, nil
}

func (s *Store) RejectApplication(ctx context.Context, input store.ReviewInput) (models.ShopApplication, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE shop_applications
		SET status = 'rejected', review_notes = $2, reviewed_by = $3, reviewed_at = $4
		WHERE application_id = $1 AND status = 'pending'
		RETURNING `+applicationColumns,
		input.ApplicationID, nullIfEmpty(input.ReviewNotes), nullIfEmpty(input.ReviewedBy), input.ReviewedAt)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, err := s.GetApplication(ctx, input.ApplicationID); err != nil {
				return models.ShopApplication{}, err
			}
			return models.ShopApplication{}, store.ErrInvalidState
		}
		return models.ShopApplication{}, err
	}
	return app, nil
}

func (s *Store) UpdateBusinessStatus(ctx context.Context, input store.BusinessStatusInput) (models.Business, error) {
	from, ok := store.BusinessRequiredStatus(input.Action)
	if !ok {
		return models.Business{}, store.ErrInvalidState
	}
	to, _ := store.BusinessTransition(input.Action, from)
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE businesses
		SET status = $2,
			updated_at = $3,
			verification_notes = COALESCE($4, verification_notes),
			verified_at = CASE WHEN $2 = 'approved' THEN $3 ELSE verified_at END,
			verified_by = CASE WHEN $2 = 'approved' THEN COALESCE($5, verified_by) ELSE verified_by END
		WHERE business_id = $1 AND status = $6
		RETURNING `+columns("businesses", businessFields),
		input.BusinessID, string(to), occurredAt, nullIfEmpty(input.Notes), nullIfEmpty(input.ActorID), string(from))
	business, err := scanBusiness(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, err := s.GetBusiness(ctx, input.BusinessID); err != nil {
				return models.Business{}, err
			}
			return models.Business{}, store.ErrInvalidState
		}
		return models.Business{}, err
	}
	return business, nil
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CreateAdmin(ctx context.Context, admin models.Admin) (models.Admin, error) {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	if admin.Role == "" {
		admin.Role = models.RoleAdmin
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO admins (admin_id, name, email, password_hash, role, active)
		VALUES ($1, $2, lower($3), $4, $5, $6)
		RETURNING `+adminColumns,
		admin.ID, admin.Name, strings.TrimSpace(admin.Email), admin.PasswordHash, admin.Role, admin.Active)
	created, err := scanAdmin(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Admin{}, fmt.Errorf("admin %q: %w", admin.Email, store.ErrDuplicate)
		}
		return models.Admin{}, err
	}
	return created, nil
}

func (s *Store) FindAdminByEmail(ctx context.Context, email string) (models.Admin, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+adminColumns+" FROM admins WHERE email = lower($1)", strings.TrimSpace(email))
	admin, err := scanAdmin(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Admin{}, store.ErrAdminNotFound
		}
		return models.Admin{}, err
	}
	return admin, nil
}

func (s *Store) TouchAdminLogin(ctx context.Context, adminID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE admins SET last_login_at = $2 WHERE admin_id = $1`, adminID, at)
	return err
}

func (s *Store) DashboardStats(ctx context.Context, dayStart time.Time) (models.DashboardStats, error) {
	var stats models.DashboardStats
	var revenue string
	row := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM businesses),
			(SELECT COUNT(*) FROM businesses WHERE status = 'approved'),
			(SELECT COUNT(*) FROM shop_applications WHERE status = 'pending'),
			(SELECT COUNT(*) FROM customers WHERE joined_at >= $1),
			(SELECT COUNT(*) FROM customers),
			(SELECT COALESCE(SUM(s.price), 0)::text
				FROM customers c
				JOIN services s ON s.service_id = c.service_id
				WHERE c.status = 'completed' AND c.completed_at >= $1)
	`, dayStart)
	if err := row.Scan(&stats.TotalShops, &stats.ActiveShops, &stats.PendingApplications, &stats.TodayCustomers, &stats.TotalCustomers, &revenue); err != nil {
		return models.DashboardStats{}, err
	}
	amount, err := parseDecimal(revenue)
	if err != nil {
		return models.DashboardStats{}, err
	}
	stats.TodayRevenue = amount
	return stats, nil
}

func scanApplication(row rowScanner) (models.ShopApplication, error) {
	var app models.ShopApplication
	var offered, hours []byte
	if err := row.Scan(&app.ID, &app.ShopName, &app.OwnerName, &app.Phone, &app.Email, &app.Address, &app.City, &app.State,
		&app.Pincode, &app.NumberOfBarbers, &offered, &hours, &app.ShopPhotoURL, &app.DocumentURL, &app.Status,
		&app.BusinessID, &app.ReviewNotes, &app.ReviewedBy, &app.ReviewedAt, &app.SubmittedAt); err != nil {
		return models.ShopApplication{}, err
	}
	if err := decodeJSON(offered, &app.ServicesOffered); err != nil {
		return models.ShopApplication{}, err
	}
	if err := decodeJSON(hours, &app.OperatingHours); err != nil {
		return models.ShopApplication{}, err
	}
	return app, nil
}

func scanAdmin(row rowScanner) (models.Admin, error) {
	var admin models.Admin
	if err := row.Scan(&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash, &admin.Role, &admin.Active, &admin.LastLoginAt, &admin.CreatedAt); err != nil {
		return models.Admin{}, err
	}
	return admin, nil
}
