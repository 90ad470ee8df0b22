package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// twilioProvider sends SMS through the Twilio Messages REST resource.
type twilioProvider struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

func (p twilioProvider) Send(ctx context.Context, message, recipient string) (string, error) {
	form := url.Values{}
	form.Set("To", recipient)
	form.Set("From", p.from)
	form.Set("Body", message)

	endpoint := strings.TrimRight(p.baseURL, "/") + "/Accounts/" + p.accountSID + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.accountSID, p.authToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}
	var parsed struct {
		SID     string `json:"sid"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &parsed)
	if resp.StatusCode >= 300 {
		if parsed.Message != "" {
			return "", fmt.Errorf("twilio status %d: %s", resp.StatusCode, parsed.Message)
		}
		return "", fmt.Errorf("twilio status %d", resp.StatusCode)
	}
	return parsed.SID, nil
}
