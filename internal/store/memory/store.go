// Package memory is an in-process implementation of the queue, notification
// log and analytics stores. It is used by tests and local demos.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"eline/internal/models"
	"eline/internal/store"

	"github.com/google/uuid"
)

var (
	_ store.QueueStore           = (*Store)(nil)
	_ store.NotificationLogStore = (*Store)(nil)
	_ store.AnalyticsStore       = (*Store)(nil)
)

type Store struct {
	mu            sync.Mutex
	businesses    map[string]models.Business
	services      map[string]models.Service
	customers     map[string]models.Customer
	sequences     map[string]int
	visits        map[string]models.CustomerVisit
	analytics     map[string]models.Analytics
	notifications []models.NotificationLog
	automation    []models.AutomationLog
}

func New() *Store {
	return &Store{
		businesses: make(map[string]models.Business),
		services:   make(map[string]models.Service),
		customers:  make(map[string]models.Customer),
		sequences:  make(map[string]int),
		visits:     make(map[string]models.CustomerVisit),
		analytics:  make(map[string]models.Analytics),
	}
}

func (s *Store) AddBusiness(b models.Business) models.Business {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = models.BusinessApproved
	}
	s.businesses[b.ID] = b
	return b
}

func (s *Store) AddService(svc models.Service) models.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	s.services[svc.ID] = svc
	return svc
}

// PutCustomer stores c as is, bypassing token assignment.
func (s *Store) PutCustomer(c models.Customer) models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Service = nil
	c.Business = nil
	s.customers[c.ID] = c
	if c.Token > s.sequences[c.BusinessID] {
		s.sequences[c.BusinessID] = c.Token
	}
	return c
}

func (s *Store) Notifications() []models.NotificationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.NotificationLog(nil), s.notifications...)
}

func (s *Store) AutomationLogs() []models.AutomationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AutomationLog(nil), s.automation...)
}

func (s *Store) Visit(businessID, phone string) (models.CustomerVisit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[visitKey(businessID, phone)]
	return v, ok
}

func (s *Store) ResolveBusiness(ctx context.Context, key string) (models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key = strings.TrimSpace(key)
	if b, ok := s.businesses[key]; ok && key != "" {
		return b, nil
	}
	for _, b := range s.businesses {
		if key == "" {
			break
		}
		if strings.EqualFold(b.Subdomain, key) || (b.BarberCode != "" && b.BarberCode == strings.ToUpper(key)) {
			return b, nil
		}
	}
	return models.Business{}, store.ErrBusinessNotFound
}

func (s *Store) GetService(ctx context.Context, businessID, serviceID string) (models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[serviceID]
	if !ok || svc.BusinessID != businessID {
		return models.Service{}, store.ErrServiceNotFound
	}
	return svc, nil
}

func (s *Store) QueueLoad(ctx context.Context, businessID string) (store.QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats(businessID, nil), nil
}

func (s *Store) QueueAhead(ctx context.Context, businessID string, joinedAt time.Time) (store.QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats(businessID, &joinedAt), nil
}

func (s *Store) stats(businessID string, before *time.Time) store.QueueStats {
	var stats store.QueueStats
	for _, c := range s.customers {
		if c.BusinessID != businessID || !c.Status.InQueue() {
			continue
		}
		if before != nil && !c.JoinedAt.Before(*before) {
			continue
		}
		stats.Count++
		stats.WaitMinutes += s.services[c.ServiceID].DurationMinutes
	}
	return stats
}

func (s *Store) CreateCustomer(ctx context.Context, input store.CreateCustomerInput) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[input.BusinessID]++
	joinedAt := input.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}
	c := models.Customer{
		ID:            uuid.NewString(),
		BusinessID:    input.BusinessID,
		ServiceID:     input.ServiceID,
		Token:         s.sequences[input.BusinessID],
		Name:          input.Name,
		Phone:         input.Phone,
		Status:        models.StatusPending,
		EstimatedWait: input.EstimatedWait,
		JoinedAt:      joinedAt,
		UpdatedAt:     joinedAt,
	}
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) GetCustomer(ctx context.Context, customerID string) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[customerID]
	if !ok {
		return models.Customer{}, store.ErrCustomerNotFound
	}
	return s.withService(c), nil
}

func (s *Store) FindCustomerByToken(ctx context.Context, businessID string, token int) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.Customer
	for _, c := range s.customers {
		if c.Token != token || (businessID != "" && c.BusinessID != businessID) {
			continue
		}
		if found == nil || c.JoinedAt.After(found.JoinedAt) {
			match := c
			found = &match
		}
	}
	if found == nil {
		return models.Customer{}, store.ErrCustomerNotFound
	}
	return s.withService(*found), nil
}

func (s *Store) TransitionCustomer(ctx context.Context, input store.TransitionInput) (models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[input.CustomerID]
	if !ok {
		return models.Customer{}, store.ErrCustomerNotFound
	}
	to, ok := store.Transition(input.Action, c.Status)
	if !ok {
		return models.Customer{}, store.ErrInvalidState
	}
	at := input.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	c.Status = to
	c.UpdatedAt = at
	switch input.Action {
	case store.ActionApprove:
		c.ApprovedAt = &at
	case store.ActionStart:
		wait := models.WaitMinutes(c.JoinedAt, at)
		c.StartedAt = &at
		c.NotifiedAt = &at
		c.ActualWait = &wait
	default:
		c.CompletedAt = &at
	}
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) ListQueue(ctx context.Context, businessID string) ([]models.Customer, error) {
	return s.filter(func(c models.Customer) bool {
		return c.BusinessID == businessID && c.Status != models.StatusCompleted
	}, byJoinedAt), nil
}

func (s *Store) NextActiveAfter(ctx context.Context, businessID string, joinedAt time.Time) (models.Customer, bool, error) {
	next := s.filter(func(c models.Customer) bool {
		return c.BusinessID == businessID && c.Status == models.StatusActive && c.JoinedAt.After(joinedAt)
	}, byJoinedAt)
	if len(next) == 0 {
		return models.Customer{}, false, nil
	}
	return next[0], true, nil
}

func (s *Store) ListServingNotifiedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Customer, error) {
	out := s.filter(func(c models.Customer) bool {
		return c.Status == models.StatusServing && c.NotifiedAt != nil && c.NotifiedAt.Before(cutoff)
	}, byJoinedAt)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListCompletedBetween(ctx context.Context, from, to time.Time, unmarked store.Mark) ([]models.Customer, error) {
	return s.filter(func(c models.Customer) bool {
		if c.Status != models.StatusCompleted || c.CompletedAt == nil {
			return false
		}
		if c.CompletedAt.Before(from) || c.CompletedAt.After(to) {
			return false
		}
		return markOf(&c, unmarked) == nil
	}, byJoinedAt), nil
}

func (s *Store) ListUpcomingUnmarked(ctx context.Context, unmarked store.Mark, maxAhead int) ([]models.Customer, error) {
	return s.filter(func(c models.Customer) bool {
		if c.Status != models.StatusActive || markOf(&c, unmarked) != nil {
			return false
		}
		ahead := s.stats(c.BusinessID, &c.JoinedAt).Count
		return ahead >= 1 && ahead <= maxAhead
	}, byJoinedAt), nil
}

func (s *Store) ClaimMark(ctx context.Context, customerID string, mark store.Mark, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[customerID]
	if !ok {
		return false, store.ErrCustomerNotFound
	}
	if !claim(&c, mark, at) {
		return false, nil
	}
	s.customers[customerID] = c
	return true, nil
}

func (s *Store) CreditVisit(ctx context.Context, credit store.VisitCredit) (models.CustomerVisit, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[credit.CustomerID]
	if !ok {
		return models.CustomerVisit{}, false, store.ErrCustomerNotFound
	}
	if !claim(&c, store.MarkLoyalty, credit.VisitedAt) {
		return models.CustomerVisit{}, false, nil
	}
	s.customers[c.ID] = c

	key := visitKey(credit.BusinessID, credit.Phone)
	visit := s.visits[key]
	visit.BusinessID = credit.BusinessID
	visit.Phone = credit.Phone
	visit.Name = credit.Name
	visit.VisitCount++
	visit.LoyaltyPoints += credit.Points
	visit.TotalSpent = visit.TotalSpent.Add(credit.Spent)
	visit.LastVisit = credit.VisitedAt
	visit.LastCustomerID = credit.CustomerID
	s.visits[key] = visit
	return visit, true, nil
}

func (s *Store) LogAutomation(ctx context.Context, entry models.AutomationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.automation = append(s.automation, entry)
	return nil
}

func (s *Store) LogNotification(ctx context.Context, entry models.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.notifications = append(s.notifications, entry)
	return nil
}

func (s *Store) ListApprovedBusinesses(ctx context.Context) ([]models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Business
	for _, b := range s.businesses {
		if b.Status == models.BusinessApproved {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListCustomersJoinedBetween(ctx context.Context, businessID string, from, to time.Time) ([]models.Customer, error) {
	return s.filter(func(c models.Customer) bool {
		return c.BusinessID == businessID && !c.JoinedAt.Before(from) && c.JoinedAt.Before(to)
	}, byJoinedAt), nil
}

func (s *Store) UpsertAnalytics(ctx context.Context, row models.Analytics) (models.Analytics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := row.BusinessID + "|" + row.Date.Format(time.DateOnly)
	if existing, ok := s.analytics[key]; ok {
		row.ID = existing.ID
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	s.analytics[key] = row
	return row, nil
}

func (s *Store) ListAnalytics(ctx context.Context, businessID string, since time.Time) ([]models.Analytics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sinceDay := since.Format(time.DateOnly)
	var out []models.Analytics
	for _, row := range s.analytics {
		if businessID != "" && row.BusinessID != businessID {
			continue
		}
		if row.Date.Format(time.DateOnly) < sinceDay {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].BusinessID < out[j].BusinessID
	})
	return out, nil
}

func (s *Store) filter(keep func(models.Customer) bool, less func(a, b models.Customer) bool) []models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Customer
	for _, c := range s.customers {
		if keep(c) {
			out = append(out, s.withService(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (s *Store) withService(c models.Customer) models.Customer {
	if svc, ok := s.services[c.ServiceID]; ok {
		c.Service = &svc
	}
	if b, ok := s.businesses[c.BusinessID]; ok {
		c.Business = &models.Business{ID: b.ID, Name: b.Name}
	}
	return c
}

func byJoinedAt(a, b models.Customer) bool {
	if a.JoinedAt.Equal(b.JoinedAt) {
		return a.Token < b.Token
	}
	return a.JoinedAt.Before(b.JoinedAt)
}

func markOf(c *models.Customer, mark store.Mark) *time.Time {
	switch mark {
	case store.MarkUpcoming:
		return c.Notifications.UpcomingAt
	case store.MarkFeedback:
		return c.Notifications.FeedbackAt
	case store.MarkLoyalty:
		return c.Notifications.LoyaltyCreditedAt
	default:
		return nil
	}
}

func claim(c *models.Customer, mark store.Mark, at time.Time) bool {
	if markOf(c, mark) != nil {
		return false
	}
	switch mark {
	case store.MarkUpcoming:
		c.Notifications.UpcomingAt = &at
	case store.MarkFeedback:
		c.Notifications.FeedbackAt = &at
	case store.MarkLoyalty:
		c.Notifications.LoyaltyCreditedAt = &at
	default:
		return false
	}
	return true
}

func visitKey(businessID, phone string) string {
	return businessID + "|" + phone
}
