package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const graphBaseURL = "https://graph.facebook.com/v18.0"

// whatsAppProvider sends plain text messages through the WhatsApp Cloud API.
type whatsAppProvider struct {
	baseURL string
	phoneID string
	token   string
	client  *http.Client
}

type whatsAppRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (p whatsAppProvider) Send(ctx context.Context, message, recipient string) (string, error) {
	body, err := json.Marshal(whatsAppRequest{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             "text",
		Text:             whatsAppText{Body: message},
	})
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(p.baseURL, "/") + "/" + p.phoneID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("whatsapp status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var parsed whatsAppResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode whatsapp response: %w", err)
	}
	if len(parsed.Messages) == 0 {
		return "", fmt.Errorf("whatsapp response without message id")
	}
	return parsed.Messages[0].ID, nil
}
