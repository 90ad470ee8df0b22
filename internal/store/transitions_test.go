package store

import (
	"testing"

	"eline/internal/models"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		action Action
		from   models.CustomerStatus
		to     models.CustomerStatus
		valid  bool
	}{
		{ActionApprove, models.StatusPending, models.StatusActive, true},
		{ActionApprove, models.StatusActive, "", false},
		{ActionStart, models.StatusActive, models.StatusServing, true},
		{ActionStart, models.StatusPending, "", false},
		{ActionComplete, models.StatusServing, models.StatusCompleted, true},
		{ActionComplete, models.StatusActive, "", false},
		{ActionCancel, models.StatusPending, models.StatusCancelled, true},
		{ActionCancel, models.StatusActive, models.StatusCancelled, true},
		{ActionCancel, models.StatusServing, models.StatusCancelled, true},
		{ActionCancel, models.StatusCompleted, "", false},
		{ActionCancel, models.StatusNoShow, "", false},
		{ActionCancel, models.StatusCancelled, "", false},
		{ActionNoShow, models.StatusServing, models.StatusNoShow, true},
		{ActionNoShow, models.StatusActive, "", false},
		{Action("rewind"), models.StatusServing, "", false},
	}

	for _, tt := range cases {
		got, ok := Transition(tt.action, tt.from)
		if ok != tt.valid || got != tt.to {
			t.Fatalf("Transition(%q, %q)=(%q, %v), want (%q, %v)", tt.action, tt.from, got, ok, tt.to, tt.valid)
		}
		if ValidTransition(tt.action, tt.from) != tt.valid {
			t.Fatalf("ValidTransition(%q, %q) disagrees with Transition", tt.action, tt.from)
		}
	}
}

func TestNoTransitionLeavesTerminalStatus(t *testing.T) {
	actions := []Action{ActionApprove, ActionStart, ActionComplete, ActionCancel, ActionNoShow}
	for _, status := range []models.CustomerStatus{models.StatusCompleted, models.StatusCancelled, models.StatusNoShow} {
		for _, action := range actions {
			if ValidTransition(action, status) {
				t.Fatalf("%q must not apply to terminal status %q", action, status)
			}
		}
	}
}

func TestAllowedFromReturnsCopy(t *testing.T) {
	allowed := AllowedFrom(ActionCancel)
	if len(allowed) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(allowed))
	}
	allowed[0] = models.StatusCompleted
	if ValidTransition(ActionCancel, models.StatusCompleted) {
		t.Fatalf("mutating AllowedFrom result changed the table")
	}
}

func TestBusinessTransition(t *testing.T) {
	cases := []struct {
		action BusinessAction
		from   models.BusinessStatus
		to     models.BusinessStatus
		valid  bool
	}{
		{BusinessApprove, models.BusinessPending, models.BusinessApproved, true},
		{BusinessReject, models.BusinessPending, models.BusinessRejected, true},
		{BusinessSuspend, models.BusinessApproved, models.BusinessSuspended, true},
		{BusinessSuspend, models.BusinessPending, "", false},
		{BusinessReactivate, models.BusinessSuspended, models.BusinessApproved, true},
		{BusinessReactivate, models.BusinessRejected, "", false},
	}
	for _, tt := range cases {
		got, ok := BusinessTransition(tt.action, tt.from)
		if ok != tt.valid || got != tt.to {
			t.Fatalf("BusinessTransition(%q, %q)=(%q, %v), want (%q, %v)", tt.action, tt.from, got, ok, tt.to, tt.valid)
		}
	}
}
