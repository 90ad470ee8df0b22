// Package queue owns the customer state machine: joining, token assignment,
// wait estimation and every staff transition.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eline/internal/models"
	"eline/internal/notify"
	"eline/internal/realtime"
	"eline/internal/store"
	"eline/internal/telemetry"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type Options struct {
	Templates notify.Templates
	// DemoMode lets unknown business keys fall back to DemoBusiness.
	DemoMode     bool
	DemoBusiness string
}

type Engine struct {
	store     store.QueueStore
	sender    notify.Sender
	publisher realtime.Publisher
	clock     clockwork.Clock
	log       *zap.Logger
	opts      Options
}

type JoinInput struct {
	Name        string
	Phone       string
	ServiceID   string
	BusinessKey string
}

// Status is the live view of one customer.
type Status struct {
	Customer      models.Customer `json:"customer"`
	Position      int             `json:"position"`
	EstimatedWait int             `json:"estimatedWait"`
}

func New(st store.QueueStore, sender notify.Sender, publisher realtime.Publisher, clock clockwork.Clock, log *zap.Logger, opts Options) *Engine {
	if publisher == nil {
		publisher = realtime.Discard{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DemoBusiness == "" {
		opts.DemoBusiness = "demo"
	}
	return &Engine{store: st, sender: sender, publisher: publisher, clock: clock, log: log, opts: opts}
}

// ResolveBusiness finds a business by id, subdomain or barber code. Unknown
// keys fail with store.ErrBusinessNotFound unless demo mode is on.
func (e *Engine) ResolveBusiness(ctx context.Context, key string) (models.Business, error) {
	key = strings.TrimSpace(key)
	if key != "" {
		business, err := e.store.ResolveBusiness(ctx, key)
		if err == nil {
			return business, nil
		}
		if !errors.Is(err, store.ErrBusinessNotFound) || !e.opts.DemoMode {
			return models.Business{}, err
		}
	} else if !e.opts.DemoMode {
		return models.Business{}, fmt.Errorf("business key required: %w", store.ErrBusinessNotFound)
	}
	business, err := e.store.ResolveBusiness(ctx, e.opts.DemoBusiness)
	if err != nil {
		return models.Business{}, err
	}
	e.log.Debug("demo business fallback", zap.String("key", key), zap.String("business_id", business.ID))
	return business, nil
}

func (e *Engine) Join(ctx context.Context, input JoinInput) (customer models.Customer, err error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.join", attribute.String("business.key", input.BusinessKey))
	defer func() { telemetry.EndSpan(span, err) }()

	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.ServiceID = strings.TrimSpace(input.ServiceID)
	if input.Name == "" || input.Phone == "" || input.ServiceID == "" {
		return models.Customer{}, fmt.Errorf("name, phone and serviceId are required: %w", store.ErrValidation)
	}

	business, err := e.ResolveBusiness(ctx, input.BusinessKey)
	if err != nil {
		return models.Customer{}, err
	}
	if business.Status != models.BusinessApproved {
		return models.Customer{}, store.ErrBusinessInactive
	}
	service, err := e.store.GetService(ctx, business.ID, input.ServiceID)
	if err != nil {
		return models.Customer{}, err
	}
	if !service.Active {
		return models.Customer{}, store.ErrServiceNotFound
	}

	load, err := e.store.QueueLoad(ctx, business.ID)
	if err != nil {
		return models.Customer{}, fmt.Errorf("queue load: %w", err)
	}
	customer, err = e.store.CreateCustomer(ctx, store.CreateCustomerInput{
		BusinessID:    business.ID,
		ServiceID:     service.ID,
		Name:          input.Name,
		Phone:         input.Phone,
		EstimatedWait: load.WaitMinutes + service.DurationMinutes,
		JoinedAt:      e.clock.Now().UTC(),
	})
	if err != nil {
		return models.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	customer.Service = &service
	customer.Business = &business

	e.log.Info("customer joined",
		zap.String("business_id", business.ID),
		zap.String("customer_id", customer.ID),
		zap.Int("token", customer.Token),
		zap.Int("estimated_wait", customer.EstimatedWait),
	)
	e.sender.Send(ctx, e.opts.Templates.Confirmation(customer))
	e.publisher.Publish(ctx, business.ID)
	return customer, nil
}

func (e *Engine) Approve(ctx context.Context, customerID string) error {
	customer, err := e.transition(ctx, customerID, store.ActionApprove)
	if err != nil {
		return err
	}
	e.sender.Send(ctx, e.opts.Templates.Approval(customer))
	e.publisher.Publish(ctx, customer.BusinessID)
	return nil
}

// Start serves the customer and warns the next active customer in line.
func (e *Engine) Start(ctx context.Context, customerID string) error {
	customer, err := e.transition(ctx, customerID, store.ActionStart)
	if err != nil {
		return err
	}
	e.sender.Send(ctx, e.opts.Templates.Turn(customer))

	next, ok, err := e.store.NextActiveAfter(ctx, customer.BusinessID, customer.JoinedAt)
	if err != nil {
		e.log.Warn("next customer lookup failed", zap.String("customer_id", customer.ID), zap.Error(err))
	} else if ok {
		if _, err := e.store.ClaimMark(ctx, next.ID, store.MarkUpcoming, e.clock.Now().UTC()); err != nil {
			e.log.Warn("upcoming marker claim failed", zap.String("customer_id", next.ID), zap.Error(err))
		}
		e.sender.Send(ctx, e.opts.Templates.Upcoming(next, 1))
	}

	e.publisher.Publish(ctx, customer.BusinessID)
	return nil
}

func (e *Engine) Complete(ctx context.Context, customerID string) error {
	customer, err := e.transition(ctx, customerID, store.ActionComplete)
	if err != nil {
		return err
	}
	e.publisher.Publish(ctx, customer.BusinessID)
	return nil
}

func (e *Engine) Cancel(ctx context.Context, customerID string) error {
	customer, err := e.transition(ctx, customerID, store.ActionCancel)
	if err != nil {
		return err
	}
	e.publisher.Publish(ctx, customer.BusinessID)
	return nil
}

// Status looks a customer up by token. A miss returns nil without error.
func (e *Engine) Status(ctx context.Context, token int, businessKey string) (status *Status, err error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.status", attribute.Int("token", token))
	defer func() { telemetry.EndSpan(span, err) }()

	if token <= 0 {
		return nil, nil
	}
	businessID := ""
	if strings.TrimSpace(businessKey) != "" {
		business, err := e.ResolveBusiness(ctx, businessKey)
		if errors.Is(err, store.ErrBusinessNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		businessID = business.ID
	}

	customer, err := e.store.FindCustomerByToken(ctx, businessID, token)
	if errors.Is(err, store.ErrCustomerNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	ahead, err := e.store.QueueAhead(ctx, customer.BusinessID, customer.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("queue ahead: %w", err)
	}
	return &Status{Customer: customer, Position: ahead.Count, EstimatedWait: ahead.WaitMinutes}, nil
}

// Queue lists every customer of the business that is not completed, in
// join order.
func (e *Engine) Queue(ctx context.Context, businessKey string) (customers []models.Customer, err error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.list", attribute.String("business.key", businessKey))
	defer func() { telemetry.EndSpan(span, err) }()

	business, err := e.ResolveBusiness(ctx, businessKey)
	if err != nil {
		return nil, err
	}
	customers, err = e.store.ListQueue(ctx, business.ID)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	return customers, nil
}

func (e *Engine) transition(ctx context.Context, customerID string, action store.Action) (customer models.Customer, err error) {
	ctx, span := telemetry.StartSpan(ctx, "queue."+string(action), attribute.String("customer.id", customerID))
	defer func() { telemetry.EndSpan(span, err) }()

	customer, err = e.store.TransitionCustomer(ctx, store.TransitionInput{
		CustomerID: customerID,
		Action:     action,
		OccurredAt: e.clock.Now().UTC(),
	})
	if err != nil {
		return models.Customer{}, err
	}
	e.log.Info("customer transition",
		zap.String("action", string(action)),
		zap.String("customer_id", customer.ID),
		zap.String("business_id", customer.BusinessID),
		zap.String("status", string(customer.Status)),
	)
	return customer, nil
}
