package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"eline/internal/hub"
	"eline/internal/models"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"go.uber.org/zap"
)

const (
	Prefix = "/realtime"

	EventError = "error"

	resolveTimeout = 5 * time.Second
)

// Resolver maps a business key (id, subdomain or barber code) to its business.
type Resolver func(ctx context.Context, key string) (models.Business, error)

type errorEvent struct {
	Type  string `json:"type"`
	Key   string `json:"businessId"`
	Error string `json:"error"`
}

// NewHandler serves the SockJS endpoint under Prefix. A session may choose its
// business with ?businessId= and change it with subscribe messages. Keys are
// resolved to the business id events are published under; a key that does not
// resolve leaves the subscription unchanged and answers with an error event.
func NewHandler(h *hub.Hub, resolve Resolver, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return sockjs.NewHandler(Prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		subscribe := func(key string) {
			businessID, err := resolveKey(resolve, key)
			if err != nil {
				log.Debug("realtime subscribe rejected", zap.String("client_id", client.ID), zap.String("key", key), zap.Error(err))
				payload, _ := json.Marshal(errorEvent{Type: EventError, Key: key, Error: "business not found"})
				select {
				case client.Send <- payload:
				default:
				}
				return
			}
			h.Subscribe(client, businessID)
			log.Debug("realtime subscribe", zap.String("client_id", client.ID), zap.String("business_id", businessID))
		}

		if req := session.Request(); req != nil {
			if key := strings.TrimSpace(req.URL.Query().Get("businessId")); key != "" {
				subscribe(key)
			}
		}

		go func() {
			for msg := range client.Send {
				if err := session.Send(string(msg)); err != nil {
					return
				}
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.Subscribe(client, "")
				continue
			}
			subscribe(strings.TrimSpace(parsed.BusinessID))
		}
	})
}

func resolveKey(resolve Resolver, key string) (string, error) {
	if resolve == nil {
		return key, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	business, err := resolve(ctx, key)
	if err != nil {
		return "", err
	}
	return business.ID, nil
}
