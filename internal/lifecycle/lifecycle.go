// Package lifecycle defines the settlement payout state machine.
//
// Allowed transitions:
//
//	pending    -> processing, on_hold
//	processing -> completed, failed
//	on_hold    -> pending
//
// completed and failed are terminal; nothing leaves them.
package lifecycle

import (
	"github.com/buildmandi/backend/internal/models"
)

// transitions maps each source status to the set of permitted targets.
var transitions = map[models.SettlementStatus][]models.SettlementStatus{
	models.StatusPending:    {models.StatusProcessing, models.StatusOnHold},
	models.StatusProcessing: {models.StatusCompleted, models.StatusFailed},
	models.StatusOnHold:     {models.StatusPending},
	models.StatusCompleted:  nil,
	models.StatusFailed:     nil,
}

// Valid reports whether s is a known settlement status.
func Valid(s models.SettlementStatus) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from -> to is a permitted transition.
func CanTransition(from, to models.SettlementStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Validate returns an InvalidTransitionError unless from -> to is
// permitted.
func Validate(from, to models.SettlementStatus) error {
	if !CanTransition(from, to) {
		return &models.InvalidTransitionError{From: from, To: to}
	}
	return nil
}
