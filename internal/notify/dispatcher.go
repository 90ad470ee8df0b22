// Package notify delivers text messages to customers and shop owners.
//
// A Dispatcher holds an ordered chain of channels. WhatsApp is tried first when
// it is configured, SMS is always the last resort. Without Twilio credentials
// the SMS slot is a mock that only logs. Every attempt, successful or not, is
// written to the notification log. Sending never returns an error to callers.
package notify

import (
	"context"
	"net/http"
	"strings"

	"eline/internal/models"
	"eline/internal/store"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Message is one outbound text.
type Message struct {
	Kind       string
	Phone      string
	Body       string
	CustomerID string
}

// Result describes the outcome of the last attempted channel.
type Result struct {
	Success    bool
	Channel    string
	ProviderID string
	Error      string
}

// Sender is what the queue engine, the scheduler and onboarding depend on.
type Sender interface {
	Send(ctx context.Context, msg Message) Result
}

type Config struct {
	// Provider is "auto" for WhatsApp/Twilio/mock selection from credentials,
	// or an explicit kind (log, noop, fail, or a webhook URL) used for SMS.
	Provider string

	WhatsAppToken   string
	WhatsAppPhoneID string
	WhatsAppBaseURL string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioBaseURL    string

	HTTPClient *http.Client
}

type channel struct {
	name     string
	provider Provider
}

type Dispatcher struct {
	channels []channel
	logs     store.NotificationLogStore
	clock    clockwork.Clock
	log      *zap.Logger
}

var _ Sender = (*Dispatcher)(nil)

func New(cfg Config, logs store.NotificationLogStore, clock clockwork.Clock, log *zap.Logger) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = defaultHTTPClient()
	}

	var channels []channel
	kind := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if kind == "" || kind == "auto" {
		if cfg.WhatsAppToken != "" && cfg.WhatsAppPhoneID != "" {
			channels = append(channels, channel{name: models.ChannelWhatsApp, provider: whatsAppProvider{
				baseURL: orDefault(cfg.WhatsAppBaseURL, graphBaseURL),
				phoneID: cfg.WhatsAppPhoneID,
				token:   cfg.WhatsAppToken,
				client:  client,
			}})
		}
		if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFrom != "" {
			channels = append(channels, channel{name: models.ChannelSMS, provider: twilioProvider{
				baseURL:    orDefault(cfg.TwilioBaseURL, twilioBaseURL),
				accountSID: cfg.TwilioAccountSID,
				authToken:  cfg.TwilioAuthToken,
				from:       cfg.TwilioFrom,
				client:     client,
			}})
		} else {
			channels = append(channels, channel{name: models.ChannelSMS, provider: logProvider{channel: models.ChannelSMS, log: log}})
		}
	} else {
		channels = append(channels, channel{name: models.ChannelSMS, provider: newProvider(strings.TrimSpace(cfg.Provider), models.ChannelSMS, client, log)})
	}

	return &Dispatcher{channels: channels, logs: logs, clock: clock, log: log}
}

// Channels lists the configured channel names in the order they are tried.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.name)
	}
	return names
}

func (d *Dispatcher) Send(ctx context.Context, msg Message) Result {
	var result Result
	for _, ch := range d.channels {
		providerID, err := ch.provider.Send(ctx, msg.Body, msg.Phone)
		entry := models.NotificationLog{
			CustomerID: msg.CustomerID,
			Phone:      msg.Phone,
			Message:    msg.Body,
			Kind:       msg.Kind,
			Channel:    ch.name,
			ProviderID: providerID,
			SentAt:     d.clock.Now(),
		}
		result = Result{Channel: ch.name, ProviderID: providerID}
		if err != nil {
			entry.Status = models.DeliveryFailed
			entry.Error = err.Error()
			result.Error = err.Error()
			d.log.Warn("notification failed",
				zap.String("channel", ch.name),
				zap.String("kind", msg.Kind),
				zap.String("customer_id", msg.CustomerID),
				zap.Error(err),
			)
		} else {
			entry.Status = models.DeliverySent
			result.Success = true
		}
		d.record(ctx, entry)
		if result.Success {
			return result
		}
	}
	return result
}

func (d *Dispatcher) record(ctx context.Context, entry models.NotificationLog) {
	if d.logs == nil {
		return
	}
	if err := d.logs.LogNotification(ctx, entry); err != nil {
		d.log.Error("notification log write failed", zap.String("channel", entry.Channel), zap.Error(err))
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
