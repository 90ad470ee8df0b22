package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Provider delivers one text message and returns the provider message id.
type Provider interface {
	Send(ctx context.Context, message, recipient string) (string, error)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

// newProvider builds the provider for an explicit NOTIFY_PROVIDER kind. Kinds
// match case-insensitively; webhook URLs are used as given.
func newProvider(kind, channel string, client *http.Client, log *zap.Logger) Provider {
	switch strings.ToLower(kind) {
	case "", "stub", "log", "mock":
		return logProvider{channel: channel, log: log}
	case "noop":
		return noopProvider{}
	case "fail":
		return failProvider{}
	default:
		if strings.HasPrefix(kind, "http://") || strings.HasPrefix(kind, "https://") {
			return webhookProvider{channel: channel, url: kind, client: client}
		}
		return logProvider{channel: channel, log: log}
	}
}

type logProvider struct {
	channel string
	log     *zap.Logger
}

func (p logProvider) Send(ctx context.Context, message, recipient string) (string, error) {
	p.log.Info("mock notification", zap.String("channel", p.channel), zap.String("to", recipient), zap.String("message", message))
	return "", nil
}

type noopProvider struct{}

func (noopProvider) Send(ctx context.Context, message, recipient string) (string, error) {
	return "", nil
}

type failProvider struct{}

func (failProvider) Send(ctx context.Context, message, recipient string) (string, error) {
	return "", errors.New("provider failure")
}

type webhookProvider struct {
	channel string
	url     string
	token   string
	client  *http.Client
}

func (p webhookProvider) Send(ctx context.Context, message, recipient string) (string, error) {
	payload := map[string]string{
		"channel":   p.channel,
		"recipient": recipient,
		"message":   message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("webhook rejected request: status %d", resp.StatusCode)
	}
	return "", nil
}
