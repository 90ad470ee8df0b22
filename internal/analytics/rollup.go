// Package analytics builds the daily per-business rollup rows. The nightly
// sweep and the operator backfill both go through Generator, and rows are
// upserted by (business, date) so reruns converge.
package analytics

import (
	"sort"
	"time"

	"eline/internal/models"

	"github.com/shopspring/decimal"
)

// DayBounds returns local midnight of day and of the following day.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// DateOf is the calendar date of t in loc, as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Rollup aggregates the customers who joined a business on one day.
// Revenue counts the service price of completed customers only.
func Rollup(businessID string, date time.Time, customers []models.Customer, loc *time.Location) models.Analytics {
	row := models.Analytics{
		BusinessID: businessID,
		Date:       date,
		Revenue:    decimal.Zero,
		Metadata:   models.AnalyticsMetadata{HourlyDistribution: map[int]int{}},
	}

	var waitSum, waitCount int
	for _, c := range customers {
		row.TotalCustomers++
		switch c.Status {
		case models.StatusCompleted:
			row.CompletedServices++
			if c.Service != nil {
				row.Revenue = row.Revenue.Add(c.Service.Price)
			}
		case models.StatusCancelled:
			row.CancelledServices++
		case models.StatusNoShow:
			row.NoShows++
		}
		if c.ActualWait != nil {
			waitSum += *c.ActualWait
			waitCount++
		}
		row.Metadata.HourlyDistribution[c.JoinedAt.In(loc).Hour()]++
	}

	if waitCount > 0 {
		avg := float64(waitSum) / float64(waitCount)
		row.AvgWaitTime = &avg
	}
	if hour, ok := peakHour(row.Metadata.HourlyDistribution); ok {
		row.PeakHour = &hour
	}
	return row
}

// peakHour picks the busiest hour, the earliest one on ties.
func peakHour(distribution map[int]int) (int, bool) {
	best, bestCount := -1, 0
	for hour := 0; hour < 24; hour++ {
		if count := distribution[hour]; count > bestCount {
			best, bestCount = hour, count
		}
	}
	return best, best >= 0
}

// Platform folds per-business rows into one entry per date, newest first.
// The average wait is the mean of the rows that have one.
func Platform(rows []models.Analytics) []models.PlatformDay {
	type acc struct {
		day      models.PlatformDay
		waitSum  float64
		waitRows int
	}
	byDate := make(map[string]*acc)
	var order []string
	for _, row := range rows {
		key := row.Date.Format(time.DateOnly)
		a, ok := byDate[key]
		if !ok {
			a = &acc{day: models.PlatformDay{Date: row.Date, Revenue: decimal.Zero}}
			byDate[key] = a
			order = append(order, key)
		}
		a.day.TotalCustomers += row.TotalCustomers
		a.day.CompletedServices += row.CompletedServices
		a.day.Revenue = a.day.Revenue.Add(row.Revenue)
		if row.AvgWaitTime != nil {
			a.waitSum += *row.AvgWaitTime
			a.waitRows++
		}
	}

	out := make([]models.PlatformDay, 0, len(order))
	for _, key := range order {
		a := byDate[key]
		if a.waitRows > 0 {
			avg := a.waitSum / float64(a.waitRows)
			a.day.AvgWaitTime = &avg
		}
		out = append(out, a.day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}
