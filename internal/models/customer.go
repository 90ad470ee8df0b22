package models

import "time"

type CustomerStatus string

const (
	StatusPending   CustomerStatus = "pending"
	StatusActive    CustomerStatus = "active"
	StatusServing   CustomerStatus = "serving"
	StatusCompleted CustomerStatus = "completed"
	StatusCancelled CustomerStatus = "cancelled"
	StatusNoShow    CustomerStatus = "no_show"
)

func (s CustomerStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusServing, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition can leave s.
func (s CustomerStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// InQueue reports whether s counts towards position and wait of later customers.
func (s CustomerStatus) InQueue() bool {
	return s == StatusActive || s == StatusServing
}

type Customer struct {
	ID            string            `json:"id"`
	BusinessID    string            `json:"businessId"`
	ServiceID     string            `json:"serviceId"`
	Token         int               `json:"token"`
	Name          string            `json:"name"`
	Phone         string            `json:"phone"`
	Status        CustomerStatus    `json:"status"`
	EstimatedWait int               `json:"estimatedWait"`
	ActualWait    *int              `json:"actualWait"`
	JoinedAt      time.Time         `json:"joinedAt"`
	ApprovedAt    *time.Time        `json:"approvedAt"`
	StartedAt     *time.Time        `json:"startedAt"`
	NotifiedAt    *time.Time        `json:"notifiedAt"`
	CompletedAt   *time.Time        `json:"completedAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	Notifications NotificationMarks `json:"notificationsSent"`
	Service       *Service          `json:"service,omitempty"`
	Business      *Business         `json:"business,omitempty"`
}

// NotificationMarks records which one-shot automated messages a customer
// already received.
type NotificationMarks struct {
	UpcomingAt        *time.Time `json:"upcoming,omitempty"`
	FeedbackAt        *time.Time `json:"feedback,omitempty"`
	LoyaltyCreditedAt *time.Time `json:"loyalty,omitempty"`
}

// WaitMinutes returns the whole minutes elapsed between joined and started.
func WaitMinutes(joined, started time.Time) int {
	d := started.Sub(joined)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}
