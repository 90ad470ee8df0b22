package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"eline/internal/models"
	"eline/internal/notify"
	"eline/internal/store"
	"eline/internal/store/memory"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (s *recordingSender) Send(ctx context.Context, msg notify.Message) notify.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return notify.Result{Success: true}
}

func (s *recordingSender) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.Kind)
	}
	return out
}

func (s *recordingSender) last() notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, businessID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, businessID)
}

type fixture struct {
	store    *memory.Store
	sender   *recordingSender
	pub      *recordingPublisher
	clock    *clockwork.FakeClock
	engine   *Engine
	business models.Business
	haircut  models.Service
	spa      models.Service
	trim     models.Service
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	st := memory.New()
	f := &fixture{
		store:  st,
		sender: &recordingSender{},
		pub:    &recordingPublisher{},
		clock:  clockwork.NewFakeClockAt(time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)),
	}
	f.business = st.AddBusiness(models.Business{Name: "Demo Salon", Subdomain: "demo", BarberCode: "BARBER-DEMO01"})
	f.haircut = st.AddService(models.Service{BusinessID: f.business.ID, Name: "Haircut", DurationMinutes: 25, Price: decimal.NewFromInt(25), Active: true})
	f.spa = st.AddService(models.Service{BusinessID: f.business.ID, Name: "Hair Spa", DurationMinutes: 45, Price: decimal.NewFromInt(45), Active: true})
	f.trim = st.AddService(models.Service{BusinessID: f.business.ID, Name: "Beard Trim", DurationMinutes: 15, Price: decimal.NewFromInt(15), Active: true})
	opts.Templates = notify.Templates{AppURL: "https://eline.test"}
	f.engine = New(st, f.sender, f.pub, f.clock, nil, opts)
	return f
}

func (f *fixture) join(t *testing.T, name string, svc models.Service) models.Customer {
	t.Helper()
	c, err := f.engine.Join(context.Background(), JoinInput{Name: name, Phone: "+1" + name, ServiceID: svc.ID, BusinessKey: "demo"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	return c
}

func TestJoinEmptyQueue(t *testing.T) {
	f := newFixture(t, Options{})

	c, err := f.engine.Join(context.Background(), JoinInput{Name: "Alice", Phone: "+1000", ServiceID: f.haircut.ID, BusinessKey: "demo"})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Token)
	assert.Equal(t, 25, c.EstimatedWait)
	assert.Equal(t, models.StatusPending, c.Status)
	require.NotNil(t, c.Service)
	require.NotNil(t, c.Business)
	assert.Equal(t, "Haircut", c.Service.Name)
	assert.Equal(t, f.business.ID, c.Business.ID)

	status, err := f.engine.Status(context.Background(), c.Token, "")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, 0, status.Position)

	assert.Equal(t, []string{notify.KindConfirmation}, f.sender.kinds())
	assert.Equal(t, []string{f.business.ID}, f.pub.topics)
}

func TestJoinEstimatesFromActiveQueue(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	first := f.join(t, "a", f.haircut)
	second := f.join(t, "b", f.spa)
	require.NoError(t, f.engine.Approve(ctx, first.ID))
	require.NoError(t, f.engine.Approve(ctx, second.ID))

	third := f.join(t, "c", f.trim)
	assert.Equal(t, 85, third.EstimatedWait)
	require.NoError(t, f.engine.Approve(ctx, third.ID))

	status, err := f.engine.Status(ctx, third.Token, "demo")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, 2, status.Position)
	assert.Equal(t, 70, status.EstimatedWait)
}

func TestPendingCustomersDoNotCountAhead(t *testing.T) {
	f := newFixture(t, Options{})
	f.join(t, "pending", f.spa)
	c := f.join(t, "later", f.haircut)
	assert.Equal(t, 25, c.EstimatedWait)

	status, err := f.engine.Status(context.Background(), c.Token, "")
	require.NoError(t, err)
	assert.Equal(t, 0, status.Position)
}

func TestTokensStrictlyIncrease(t *testing.T) {
	f := newFixture(t, Options{})
	prev := 0
	for i := 0; i < 5; i++ {
		c := f.join(t, "n", f.haircut)
		assert.Equal(t, prev+1, c.Token)
		prev = c.Token
	}
}

func TestStatusUnknownToken(t *testing.T) {
	f := newFixture(t, Options{})
	status, err := f.engine.Status(context.Background(), 999999, "")
	require.NoError(t, err)
	assert.Nil(t, status)

	status, err = f.engine.Status(context.Background(), 1, "no-such-shop")
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestStartNotifiesNextActiveCustomer(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	first := f.join(t, "first", f.haircut)
	second := f.join(t, "second", f.haircut)
	require.NoError(t, f.engine.Approve(ctx, first.ID))
	require.NoError(t, f.engine.Approve(ctx, second.ID))

	f.clock.Advance(12*time.Minute + 30*time.Second)
	require.NoError(t, f.engine.Start(ctx, first.ID))

	kinds := f.sender.kinds()
	require.GreaterOrEqual(t, len(kinds), 2)
	assert.Equal(t, []string{notify.KindTurn, notify.KindUpcoming}, kinds[len(kinds)-2:])
	upcoming := f.sender.last()
	assert.Equal(t, second.ID, upcoming.CustomerID)
	assert.Contains(t, upcoming.Body, "Only 1 person ahead")

	served, err := f.store.GetCustomer(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusServing, served.Status)
	require.NotNil(t, served.ActualWait)
	assert.Equal(t, 14, *served.ActualWait)
	require.NotNil(t, served.NotifiedAt)
	assert.True(t, served.StartedAt.Equal(*served.NotifiedAt))

	next, err := f.store.GetCustomer(ctx, second.ID)
	require.NoError(t, err)
	assert.NotNil(t, next.Notifications.UpcomingAt)
}

func TestStartWithoutNextCustomerSendsOnlyTurn(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	only := f.join(t, "only", f.haircut)
	require.NoError(t, f.engine.Approve(ctx, only.ID))
	require.NoError(t, f.engine.Start(ctx, only.ID))

	assert.Equal(t, []string{notify.KindConfirmation, notify.KindApproval, notify.KindTurn}, f.sender.kinds())
}

func TestIllegalTransitionsFailWithoutMutation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	c := f.join(t, "x", f.haircut)

	err := f.engine.Complete(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrInvalidState)
	err = f.engine.Start(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrInvalidState)

	got, err := f.store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, f.engine.Cancel(ctx, c.ID))
	assert.ErrorIs(t, f.engine.Cancel(ctx, c.ID), store.ErrInvalidState)
	assert.ErrorIs(t, f.engine.Approve(ctx, c.ID), store.ErrInvalidState)

	got, err = f.store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestUnknownCustomer(t *testing.T) {
	f := newFixture(t, Options{})
	assert.ErrorIs(t, f.engine.Approve(context.Background(), "missing"), store.ErrCustomerNotFound)
}

func TestCompleteIsSilent(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	c := f.join(t, "x", f.haircut)
	require.NoError(t, f.engine.Approve(ctx, c.ID))
	require.NoError(t, f.engine.Start(ctx, c.ID))
	before := len(f.sender.kinds())

	require.NoError(t, f.engine.Complete(ctx, c.ID))
	assert.Len(t, f.sender.kinds(), before)

	queue, err := f.engine.Queue(ctx, "demo")
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestQueueExcludesOnlyCompleted(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a := f.join(t, "a", f.haircut)
	b := f.join(t, "b", f.haircut)
	c := f.join(t, "c", f.haircut)
	require.NoError(t, f.engine.Cancel(ctx, b.ID))

	queue, err := f.engine.Queue(ctx, f.business.ID)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{queue[0].ID, queue[1].ID, queue[2].ID})
}

func TestJoinValidation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.engine.Join(ctx, JoinInput{Name: " ", Phone: "+1", ServiceID: f.haircut.ID, BusinessKey: "demo"})
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = f.engine.Join(ctx, JoinInput{Name: "a", Phone: "+1", ServiceID: "nope", BusinessKey: "demo"})
	assert.ErrorIs(t, err, store.ErrServiceNotFound)

	_, err = f.engine.Join(ctx, JoinInput{Name: "a", Phone: "+1", ServiceID: f.haircut.ID, BusinessKey: "elsewhere"})
	assert.ErrorIs(t, err, store.ErrBusinessNotFound)

	inactive := f.store.AddService(models.Service{BusinessID: f.business.ID, Name: "Old", DurationMinutes: 10, Active: false})
	_, err = f.engine.Join(ctx, JoinInput{Name: "a", Phone: "+1", ServiceID: inactive.ID, BusinessKey: "demo"})
	assert.ErrorIs(t, err, store.ErrServiceNotFound)

	assert.Empty(t, f.sender.kinds())
}

func TestJoinRejectsSuspendedBusiness(t *testing.T) {
	f := newFixture(t, Options{})
	closed := f.store.AddBusiness(models.Business{Name: "Closed", Subdomain: "closed", Status: models.BusinessSuspended})
	svc := f.store.AddService(models.Service{BusinessID: closed.ID, Name: "Cut", DurationMinutes: 20, Active: true})

	_, err := f.engine.Join(context.Background(), JoinInput{Name: "a", Phone: "+1", ServiceID: svc.ID, BusinessKey: "closed"})
	assert.ErrorIs(t, err, store.ErrBusinessInactive)
}

func TestDemoModeFallback(t *testing.T) {
	f := newFixture(t, Options{DemoMode: true})

	c, err := f.engine.Join(context.Background(), JoinInput{Name: "a", Phone: "+1", ServiceID: f.haircut.ID, BusinessKey: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, f.business.ID, c.BusinessID)

	b, err := f.engine.ResolveBusiness(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, f.business.ID, b.ID)
}

func TestResolveByBarberCode(t *testing.T) {
	f := newFixture(t, Options{})
	b, err := f.engine.ResolveBusiness(context.Background(), "barber-demo01")
	require.NoError(t, err)
	assert.Equal(t, f.business.ID, b.ID)
}
