package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eline/internal/models"
	"eline/internal/store"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type Generator struct {
	store store.AnalyticsStore
	clock clockwork.Clock
	loc   *time.Location
	log   *zap.Logger
}

func NewGenerator(st store.AnalyticsStore, clock clockwork.Clock, loc *time.Location, log *zap.Logger) *Generator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{store: st, clock: clock, loc: loc, log: log}
}

// Location is the zone used for day boundaries.
func (g *Generator) Location() *time.Location {
	return g.loc
}

// RunDay upserts the rollup of day for every approved business and reports
// how many rows were written. A failing business does not stop the others.
func (g *Generator) RunDay(ctx context.Context, day time.Time, skipEmpty bool) (int, error) {
	businesses, err := g.store.ListApprovedBusinesses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list businesses: %w", err)
	}
	from, to := DayBounds(day, g.loc)
	date := DateOf(from, g.loc)

	written := 0
	var errs []error
	for _, business := range businesses {
		customers, err := g.store.ListCustomersJoinedBetween(ctx, business.ID, from, to)
		if err != nil {
			errs = append(errs, fmt.Errorf("business %s: %w", business.ID, err))
			continue
		}
		if skipEmpty && len(customers) == 0 {
			continue
		}
		row := Rollup(business.ID, date, customers, g.loc)
		if _, err := g.store.UpsertAnalytics(ctx, row); err != nil {
			errs = append(errs, fmt.Errorf("business %s: %w", business.ID, err))
			continue
		}
		written++
		g.log.Debug("analytics generated",
			zap.String("business_id", business.ID),
			zap.String("date", date.Format(time.DateOnly)),
			zap.Int("customers", row.TotalCustomers),
		)
	}
	return written, errors.Join(errs...)
}

// Backfill rolls up today and the days-1 days before it.
func (g *Generator) Backfill(ctx context.Context, days int, skipEmpty bool) (int, error) {
	if days <= 0 {
		days = 30
	}
	now := g.clock.Now()
	total := 0
	var errs []error
	for i := 0; i < days; i++ {
		n, err := g.RunDay(ctx, now.AddDate(0, 0, -i), skipEmpty)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// Since is the first date included in a listing of the last days days.
func (g *Generator) Since(days int) time.Time {
	return DateOf(g.clock.Now(), g.loc).AddDate(0, 0, -days)
}

// List returns the analytics rows of one business, newest first.
func (g *Generator) List(ctx context.Context, businessID string, days int) ([]models.Analytics, error) {
	rows, err := g.store.ListAnalytics(ctx, businessID, g.Since(days))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Analytics{}
	}
	return rows, nil
}

// PlatformSummary aggregates every business per date over the last days days.
func (g *Generator) PlatformSummary(ctx context.Context, days int) ([]models.PlatformDay, error) {
	rows, err := g.store.ListAnalytics(ctx, "", g.Since(days))
	if err != nil {
		return nil, err
	}
	return Platform(rows), nil
}
