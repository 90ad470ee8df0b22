package store

import "eline/internal/models"

type Action string

const (
	ActionApprove  Action = "approve"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionNoShow   Action = "no_show"
)

type transition struct {
	from []models.CustomerStatus
	to   models.CustomerStatus
}

var transitionMap = map[Action]transition{
	ActionApprove:  {from: []models.CustomerStatus{models.StatusPending}, to: models.StatusActive},
	ActionStart:    {from: []models.CustomerStatus{models.StatusActive}, to: models.StatusServing},
	ActionComplete: {from: []models.CustomerStatus{models.StatusServing}, to: models.StatusCompleted},
	ActionCancel:   {from: []models.CustomerStatus{models.StatusPending, models.StatusActive, models.StatusServing}, to: models.StatusCancelled},
	ActionNoShow:   {from: []models.CustomerStatus{models.StatusServing}, to: models.StatusNoShow},
}

// Transition returns the status a customer in from moves to under action.
func Transition(action Action, from models.CustomerStatus) (models.CustomerStatus, bool) {
	t, ok := transitionMap[action]
	if !ok {
		return "", false
	}
	for _, status := range t.from {
		if status == from {
			return t.to, true
		}
	}
	return "", false
}

func ValidTransition(action Action, from models.CustomerStatus) bool {
	_, ok := Transition(action, from)
	return ok
}

// AllowedFrom lists the statuses action may be applied to.
func AllowedFrom(action Action) []models.CustomerStatus {
	t, ok := transitionMap[action]
	if !ok {
		return nil
	}
	out := make([]models.CustomerStatus, len(t.from))
	copy(out, t.from)
	return out
}

// TargetStatus is the status every successful application of action ends in.
func TargetStatus(action Action) (models.CustomerStatus, bool) {
	t, ok := transitionMap[action]
	return t.to, ok
}

type BusinessAction string

const (
	BusinessApprove    BusinessAction = "approve"
	BusinessReject     BusinessAction = "reject"
	BusinessSuspend    BusinessAction = "suspend"
	BusinessReactivate BusinessAction = "reactivate"
)

var businessTransitionMap = map[BusinessAction]struct {
	from models.BusinessStatus
	to   models.BusinessStatus
}{
	BusinessApprove:    {from: models.BusinessPending, to: models.BusinessApproved},
	BusinessReject:     {from: models.BusinessPending, to: models.BusinessRejected},
	BusinessSuspend:    {from: models.BusinessApproved, to: models.BusinessSuspended},
	BusinessReactivate: {from: models.BusinessSuspended, to: models.BusinessApproved},
}

func BusinessTransition(action BusinessAction, from models.BusinessStatus) (models.BusinessStatus, bool) {
	t, ok := businessTransitionMap[action]
	if !ok || t.from != from {
		return "", false
	}
	return t.to, true
}

// BusinessRequiredStatus is the only status action may be applied to.
func BusinessRequiredStatus(action BusinessAction) (models.BusinessStatus, bool) {
	t, ok := businessTransitionMap[action]
	return t.from, ok
}
