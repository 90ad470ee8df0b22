package models

import (
	"encoding/json"
	"time"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"

	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

type NotificationLog struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId,omitempty"`
	Phone      string    `json:"phone"`
	Message    string    `json:"message"`
	Kind       string    `json:"kind"`
	Channel    string    `json:"channel"`
	Status     string    `json:"status"`
	ProviderID string    `json:"providerId,omitempty"`
	Error      string    `json:"error,omitempty"`
	SentAt     time.Time `json:"sentAt"`
}

const (
	AutomationNoShow         = "no_show_removal"
	AutomationFeedback       = "feedback_request"
	AutomationLoyaltyReward  = "loyalty_reward"
	AutomationDailyAnalytics = "daily_analytics"

	AutomationCompleted = "completed"
	AutomationFailed    = "failed"
)

type AutomationLog struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	CustomerID string          `json:"customerId,omitempty"`
	Status     string          `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
