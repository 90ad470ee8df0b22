package notify

import (
	"fmt"

	"eline/internal/models"
)

const (
	KindConfirmation        = "confirmation"
	KindApproval            = "approval"
	KindUpcoming            = "upcoming"
	KindTurn                = "turn"
	KindNoShow              = "no_show"
	KindFeedback            = "feedback"
	KindLoyalty             = "loyalty"
	KindApplicationReceived = "application_received"
	KindApplicationApproved = "application_approved"
	KindApplicationRejected = "application_rejected"
)

// Templates renders every outbound text. AppURL prefixes tracking and
// feedback links.
type Templates struct {
	AppURL string
}

func (t Templates) Confirmation(c models.Customer) Message {
	body := fmt.Sprintf("Hi %s! Your token is #%d. We'll notify you when it's almost your turn. Track your status: %s/queue?token=%d",
		c.Name, c.Token, t.AppURL, c.Token)
	return customerMessage(KindConfirmation, c, body)
}

func (t Templates) Approval(c models.Customer) Message {
	body := fmt.Sprintf("Hi %s! Your token #%d has been approved. You're in the queue now! Estimated wait: %d minutes.",
		c.Name, c.Token, c.EstimatedWait)
	return customerMessage(KindApproval, c, body)
}

// Upcoming tells c that ahead customers are still in front of them.
func (t Templates) Upcoming(c models.Customer, ahead int) Message {
	body := fmt.Sprintf("Hi %s! Only %d %s ahead of you (Token #%d). Please be ready!",
		c.Name, ahead, people(ahead), c.Token)
	return customerMessage(KindUpcoming, c, body)
}

func (t Templates) Turn(c models.Customer) Message {
	body := fmt.Sprintf("Hi %s! It's your turn now (Token #%d). Please proceed to the counter. 🎉", c.Name, c.Token)
	return customerMessage(KindTurn, c, body)
}

func (t Templates) NoShow(c models.Customer) Message {
	body := fmt.Sprintf("Hi %s, we noticed you missed your turn (Token #%d). No worries! Please rejoin the queue when you're ready.",
		c.Name, c.Token)
	return customerMessage(KindNoShow, c, body)
}

func (t Templates) Feedback(c models.Customer, businessName string) Message {
	body := fmt.Sprintf("Hi %s! Thank you for visiting %s. How was your experience? Rate us: %s/feedback/%d",
		c.Name, businessName, t.AppURL, c.Token)
	return customerMessage(KindFeedback, c, body)
}

func (t Templates) Loyalty(c models.Customer, visitCount int) Message {
	body := fmt.Sprintf("🎉 Congratulations %s! You've completed %d visits. Enjoy 20%% off your next service! Show this message at checkout.",
		c.Name, visitCount)
	return customerMessage(KindLoyalty, c, body)
}

func (t Templates) ApplicationReceived(phone, shopName string) Message {
	return Message{
		Kind:  KindApplicationReceived,
		Phone: phone,
		Body: fmt.Sprintf("Thank you for applying to eLINE! Your application for \"%s\" has been received. We'll review it within 24-48 hours and notify you.",
			shopName),
	}
}

func (t Templates) ApplicationApproved(phone, shopName, barberCode, password string) Message {
	return Message{
		Kind:  KindApplicationApproved,
		Phone: phone,
		Body: fmt.Sprintf("🎉 Congratulations! Your shop \"%s\" has been approved!\n\nBarber Code: %s\nPassword: %s\n\nLogin at: %s/barber-login",
			shopName, barberCode, password, t.AppURL),
	}
}

func (t Templates) ApplicationRejected(phone, shopName, reason string) Message {
	return Message{
		Kind:  KindApplicationRejected,
		Phone: phone,
		Body: fmt.Sprintf("Your shop application for \"%s\" needs attention. Reason: %s. Please contact support for more details.",
			shopName, reason),
	}
}

func customerMessage(kind string, c models.Customer, body string) Message {
	return Message{Kind: kind, Phone: c.Phone, Body: body, CustomerID: c.ID}
}

func people(n int) string {
	if n == 1 {
		return "person"
	}
	return "people"
}
