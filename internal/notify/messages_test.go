package notify

import (
	"testing"

	"eline/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTemplates(t *testing.T) {
	tpl := Templates{AppURL: "https://eline.test"}
	c := models.Customer{ID: "c1", Name: "Asha", Phone: "+91", Token: 7, EstimatedWait: 40}

	tests := []struct {
		name string
		msg  Message
		kind string
		body string
	}{
		{"confirmation", tpl.Confirmation(c), KindConfirmation,
			"Hi Asha! Your token is #7. We'll notify you when it's almost your turn. Track your status: https://eline.test/queue?token=7"},
		{"approval", tpl.Approval(c), KindApproval,
			"Hi Asha! Your token #7 has been approved. You're in the queue now! Estimated wait: 40 minutes."},
		{"upcoming one", tpl.Upcoming(c, 1), KindUpcoming,
			"Hi Asha! Only 1 person ahead of you (Token #7). Please be ready!"},
		{"upcoming two", tpl.Upcoming(c, 2), KindUpcoming,
			"Hi Asha! Only 2 people ahead of you (Token #7). Please be ready!"},
		{"turn", tpl.Turn(c), KindTurn,
			"Hi Asha! It's your turn now (Token #7). Please proceed to the counter. 🎉"},
		{"no show", tpl.NoShow(c), KindNoShow,
			"Hi Asha, we noticed you missed your turn (Token #7). No worries! Please rejoin the queue when you're ready."},
		{"feedback", tpl.Feedback(c, "Demo Salon"), KindFeedback,
			"Hi Asha! Thank you for visiting Demo Salon. How was your experience? Rate us: https://eline.test/feedback/7"},
		{"loyalty", tpl.Loyalty(c, 5), KindLoyalty,
			"🎉 Congratulations Asha! You've completed 5 visits. Enjoy 20% off your next service! Show this message at checkout."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.msg.Kind)
			assert.Equal(t, tc.body, tc.msg.Body)
			assert.Equal(t, "+91", tc.msg.Phone)
			assert.Equal(t, "c1", tc.msg.CustomerID)
		})
	}
}

func TestApplicationTemplates(t *testing.T) {
	tpl := Templates{AppURL: "https://eline.test"}

	msg := tpl.ApplicationApproved("+1", "Fade Lab", "BARBER-ABC234", "pw123456")
	assert.Equal(t, "🎉 Congratulations! Your shop \"Fade Lab\" has been approved!\n\nBarber Code: BARBER-ABC234\nPassword: pw123456\n\nLogin at: https://eline.test/barber-login", msg.Body)
	assert.Empty(t, msg.CustomerID)

	msg = tpl.ApplicationRejected("+1", "Fade Lab", "missing documents")
	assert.Equal(t, "Your shop application for \"Fade Lab\" needs attention. Reason: missing documents. Please contact support for more details.", msg.Body)

	msg = tpl.ApplicationReceived("+1", "Fade Lab")
	assert.Contains(t, msg.Body, "\"Fade Lab\" has been received")
}
