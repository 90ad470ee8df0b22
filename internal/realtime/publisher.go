// Package realtime pushes queue change events to connected dashboards.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"eline/internal/hub"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const EventQueueUpdate = "queue_update"

type Event struct {
	Type       string    `json:"type"`
	BusinessID string    `json:"businessId"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher announces that the queue of a business changed.
type Publisher interface {
	Publish(ctx context.Context, businessID string)
}

// LocalPublisher broadcasts straight into the in-process hub.
type LocalPublisher struct {
	hub   *hub.Hub
	clock clockwork.Clock
	log   *zap.Logger
}

func NewLocalPublisher(h *hub.Hub, clock clockwork.Clock, log *zap.Logger) *LocalPublisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalPublisher{hub: h, clock: clock, log: log}
}

func (p *LocalPublisher) Publish(ctx context.Context, businessID string) {
	payload, err := encodeEvent(businessID, p.clock.Now())
	if err != nil {
		p.log.Error("encode realtime event", zap.Error(err))
		return
	}
	p.hub.Broadcast(businessID, payload)
}

func encodeEvent(businessID string, at time.Time) ([]byte, error) {
	return json.Marshal(Event{Type: EventQueueUpdate, BusinessID: businessID, Timestamp: at.UTC()})
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, string) {}
