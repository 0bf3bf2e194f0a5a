// Package lifecycle defines the booking status transition graph and the
// wizard step rules derived from it. It is a pure lookup layer: violations
// are business-rule errors surfaced immediately, never retried.
package lifecycle

import (
	"fmt"

	"github.com/washplan/washplan/app/models"
)

// transitions is the fixed adjacency table of legal status changes.
// CANCELED and CLOSED have no outgoing edges.
var transitions = map[string][]string{
	models.BookingStatusDraft:          {models.BookingStatusQualified, models.BookingStatusCanceled},
	models.BookingStatusQualified:      {models.BookingStatusScheduled, models.BookingStatusCanceled},
	models.BookingStatusScheduled:      {models.BookingStatusPaidSetup, models.BookingStatusCanceled},
	models.BookingStatusPaidSetup:      {models.BookingStatusContractSigned, models.BookingStatusCanceled},
	models.BookingStatusContractSigned: {models.BookingStatusActive, models.BookingStatusCanceled},
	models.BookingStatusActive:         {models.BookingStatusPastDue, models.BookingStatusClosed, models.BookingStatusCanceled},
	models.BookingStatusPastDue:        {models.BookingStatusActive, models.BookingStatusCanceled, models.BookingStatusClosed},
	models.BookingStatusCanceled:       {},
	models.BookingStatusClosed:         {},
}

// orderedPrefix is the strictly ordered part of the status graph used for
// step gating. PAST_DUE is a lateral excursion from ACTIVE and deliberately
// not comparable; terminal statuses are not comparable either.
var orderedPrefix = []string{
	models.BookingStatusDraft,
	models.BookingStatusQualified,
	models.BookingStatusScheduled,
	models.BookingStatusPaidSetup,
	models.BookingStatusContractSigned,
	models.BookingStatusActive,
}

// InvalidTransitionError reports an illegal status change attempt.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking status transition from %s to %s", e.From, e.To)
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AssertTransition returns an *InvalidTransitionError naming both states
// when the transition is illegal, nil otherwise. Every status-changing
// operation goes through this guard.
func AssertTransition(from, to string) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// IsAtLeast reports whether current has progressed at least as far as
// required within the ordered prefix. Statuses outside the prefix
// (PAST_DUE, CANCELED, CLOSED) are never "at least" anything, and nothing
// is ever "at least" them.
func IsAtLeast(current, required string) bool {
	ci := prefixIndex(current)
	ri := prefixIndex(required)
	if ci < 0 || ri < 0 {
		return false
	}
	return ci >= ri
}

func prefixIndex(status string) int {
	for i, s := range orderedPrefix {
		if s == status {
			return i
		}
	}
	return -1
}
