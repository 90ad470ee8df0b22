// Package automation runs the periodic sweeps over queue data: no-show
// reclaim, feedback requests, loyalty credit, the daily analytics rollup and
// upcoming-turn reminders.
package automation

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"eline/internal/analytics"
	"eline/internal/models"
	"eline/internal/notify"
	"eline/internal/store"
	"eline/internal/telemetry"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	feedbackMinAge = 5 * time.Minute
	feedbackMaxAge = time.Hour
	loyaltyPoints  = 10
	rewardEvery    = 5
	upcomingWithin = 2
)

type Config struct {
	NoShowInterval   time.Duration
	NoShowGrace      time.Duration
	FeedbackInterval time.Duration
	LoyaltyInterval  time.Duration
	UpcomingInterval time.Duration
	BatchSize        int
	Templates        notify.Templates
}

func (c Config) withDefaults() Config {
	if c.NoShowInterval <= 0 {
		c.NoShowInterval = 5 * time.Minute
	}
	if c.NoShowGrace <= 0 {
		c.NoShowGrace = 15 * time.Minute
	}
	if c.FeedbackInterval <= 0 {
		c.FeedbackInterval = 10 * time.Minute
	}
	if c.LoyaltyInterval <= 0 {
		c.LoyaltyInterval = time.Hour
	}
	if c.UpcomingInterval <= 0 {
		c.UpcomingInterval = 2 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	return c
}

type Scheduler struct {
	store     store.QueueStore
	sender    notify.Sender
	generator *analytics.Generator
	clock     clockwork.Clock
	log       *zap.Logger
	cfg       Config

	noShowRunning   int32
	feedbackRunning int32
	loyaltyRunning  int32
	dailyRunning    int32
	upcomingRunning int32

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(st store.QueueStore, sender notify.Sender, generator *analytics.Generator, clock clockwork.Clock, log *zap.Logger, cfg Config) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		store:     st,
		sender:    sender,
		generator: generator,
		clock:     clock,
		log:       log,
		cfg:       cfg.withDefaults(),
	}
}

// Start launches every sweep on its own goroutine. Calling Start twice
// without Stop is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.every(ctx, s.cfg.NoShowInterval, "no_show", &s.noShowRunning, s.RunNoShow)
	s.every(ctx, s.cfg.FeedbackInterval, "feedback", &s.feedbackRunning, s.RunFeedback)
	s.every(ctx, s.cfg.LoyaltyInterval, "loyalty", &s.loyaltyRunning, s.RunLoyalty)
	s.every(ctx, s.cfg.UpcomingInterval, "upcoming", &s.upcomingRunning, s.RunUpcoming)
	if s.generator != nil {
		s.wg.Add(1)
		go s.midnightLoop(ctx)
	}
	s.log.Info("automation started",
		zap.Duration("no_show_interval", s.cfg.NoShowInterval),
		zap.Duration("feedback_interval", s.cfg.FeedbackInterval),
		zap.Duration("loyalty_interval", s.cfg.LoyaltyInterval),
		zap.Duration("upcoming_interval", s.cfg.UpcomingInterval),
	)
}

// Stop cancels the sweeps and waits for in-flight passes to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info("automation stopped")
}

func (s *Scheduler) every(ctx context.Context, interval time.Duration, name string, running *int32, run func(context.Context) (int, error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := s.clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.guarded(ctx, name, running, run)
			}
		}
	}()
}

func (s *Scheduler) midnightLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		now := s.clock.Now()
		_, next := analytics.DayBounds(now, s.generator.Location())
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(next.Sub(now)):
			s.guarded(ctx, "daily_analytics", &s.dailyRunning, s.RunDailyAnalytics)
		}
	}
}

// guarded skips a tick while the previous pass of the same sweep is still
// running.
func (s *Scheduler) guarded(ctx context.Context, name string, running *int32, run func(context.Context) (int, error)) {
	if !atomic.CompareAndSwapInt32(running, 0, 1) {
		s.log.Debug("sweep still running, tick skipped", zap.String("sweep", name))
		return
	}
	defer atomic.StoreInt32(running, 0)

	ctx, span := telemetry.StartSpan(ctx, "automation."+name)
	processed, err := run(ctx)
	span.SetAttributes(attribute.Int("processed", processed))
	telemetry.EndSpan(span, err)
	if err != nil {
		s.log.Error("sweep failed", zap.String("sweep", name), zap.Error(err))
		return
	}
	if processed > 0 {
		s.log.Info("sweep done", zap.String("sweep", name), zap.Int("processed", processed))
	}
}

// RunNoShow moves serving customers whose turn call is older than the grace
// window to no_show and tells them so.
func (s *Scheduler) RunNoShow(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()
	customers, err := s.store.ListServingNotifiedBefore(ctx, now.Add(-s.cfg.NoShowGrace), s.cfg.BatchSize)
	if err != nil {
		s.logAutomation(ctx, models.AutomationLog{
			Type:      models.AutomationNoShow,
			Status:    models.AutomationFailed,
			Error:     err.Error(),
			CreatedAt: now,
		})
		return 0, err
	}

	processed := 0
	for _, c := range customers {
		updated, err := s.store.TransitionCustomer(ctx, store.TransitionInput{
			CustomerID: c.ID,
			Action:     store.ActionNoShow,
			OccurredAt: now,
		})
		if err != nil {
			s.log.Warn("no-show transition failed", zap.String("customer_id", c.ID), zap.Error(err))
			continue
		}
		s.sender.Send(ctx, s.cfg.Templates.NoShow(updated))
		s.logAutomation(ctx, models.AutomationLog{
			Type:       models.AutomationNoShow,
			CustomerID: c.ID,
			Status:     models.AutomationCompleted,
			Result:     result(map[string]any{"action": "marked_as_no_show"}),
			CreatedAt:  now,
		})
		processed++
	}
	return processed, nil
}

// RunFeedback asks recently completed customers for feedback, once each.
func (s *Scheduler) RunFeedback(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()
	customers, err := s.store.ListCompletedBetween(ctx, now.Add(-feedbackMaxAge), now.Add(-feedbackMinAge), store.MarkFeedback)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, c := range customers {
		claimed, err := s.store.ClaimMark(ctx, c.ID, store.MarkFeedback, now)
		if err != nil {
			s.log.Warn("feedback claim failed", zap.String("customer_id", c.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		businessName := ""
		if c.Business != nil {
			businessName = c.Business.Name
		}
		s.sender.Send(ctx, s.cfg.Templates.Feedback(c, businessName))
		s.logAutomation(ctx, models.AutomationLog{
			Type:       models.AutomationFeedback,
			CustomerID: c.ID,
			Status:     models.AutomationCompleted,
			CreatedAt:  now,
		})
		processed++
	}
	return processed, nil
}

// RunLoyalty credits every customer completed today to the visit ledger of
// their phone number and rewards every fifth visit.
func (s *Scheduler) RunLoyalty(ctx context.Context) (int, error) {
	now := s.clock.Now()
	dayStart, _ := analytics.DayBounds(now, s.location())
	customers, err := s.store.ListCompletedBetween(ctx, dayStart.UTC(), now.UTC(), store.MarkLoyalty)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, c := range customers {
		credit := store.VisitCredit{
			BusinessID: c.BusinessID,
			Phone:      c.Phone,
			Name:       c.Name,
			CustomerID: c.ID,
			Points:     loyaltyPoints,
			VisitedAt:  now.UTC(),
		}
		if c.Service != nil {
			credit.Spent = c.Service.Price
		}
		visit, credited, err := s.store.CreditVisit(ctx, credit)
		if err != nil {
			s.log.Warn("loyalty credit failed", zap.String("customer_id", c.ID), zap.Error(err))
			continue
		}
		if !credited {
			continue
		}
		processed++
		if visit.VisitCount%rewardEvery != 0 {
			continue
		}
		s.sender.Send(ctx, s.cfg.Templates.Loyalty(c, visit.VisitCount))
		s.logAutomation(ctx, models.AutomationLog{
			Type:       models.AutomationLoyaltyReward,
			CustomerID: c.ID,
			Status:     models.AutomationCompleted,
			Result:     result(map[string]any{"visitCount": visit.VisitCount}),
			CreatedAt:  now.UTC(),
		})
	}
	return processed, nil
}

// RunDailyAnalytics rolls up the day that just ended and the current day.
func (s *Scheduler) RunDailyAnalytics(ctx context.Context) (int, error) {
	if s.generator == nil {
		return 0, nil
	}
	now := s.clock.Now()
	total := 0
	for _, day := range []time.Time{now.AddDate(0, 0, -1), now} {
		n, err := s.generator.RunDay(ctx, day, false)
		total += n
		if err != nil {
			s.logAutomation(ctx, models.AutomationLog{
				Type:      models.AutomationDailyAnalytics,
				Status:    models.AutomationFailed,
				Error:     err.Error(),
				CreatedAt: now.UTC(),
			})
			return total, err
		}
	}
	s.logAutomation(ctx, models.AutomationLog{
		Type:      models.AutomationDailyAnalytics,
		Status:    models.AutomationCompleted,
		Result:    result(map[string]any{"rows": total}),
		CreatedAt: now.UTC(),
	})
	return total, nil
}

// RunUpcoming reminds active customers with one or two people ahead of them.
func (s *Scheduler) RunUpcoming(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()
	customers, err := s.store.ListUpcomingUnmarked(ctx, store.MarkUpcoming, upcomingWithin)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, c := range customers {
		ahead, err := s.store.QueueAhead(ctx, c.BusinessID, c.JoinedAt)
		if err != nil {
			s.log.Warn("queue position failed", zap.String("customer_id", c.ID), zap.Error(err))
			continue
		}
		if ahead.Count < 1 || ahead.Count > upcomingWithin {
			continue
		}
		claimed, err := s.store.ClaimMark(ctx, c.ID, store.MarkUpcoming, now)
		if err != nil {
			s.log.Warn("upcoming claim failed", zap.String("customer_id", c.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		s.sender.Send(ctx, s.cfg.Templates.Upcoming(c, ahead.Count))
		processed++
	}
	return processed, nil
}

func (s *Scheduler) location() *time.Location {
	if s.generator != nil {
		return s.generator.Location()
	}
	return time.Local
}

func (s *Scheduler) logAutomation(ctx context.Context, entry models.AutomationLog) {
	if err := s.store.LogAutomation(ctx, entry); err != nil {
		s.log.Error("automation log write failed", zap.String("type", entry.Type), zap.Error(err))
	}
}

func result(v map[string]any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
