package lifecycle

import (
	"testing"

	"github.com/washplan/washplan/app/models"
)

func TestRuleForStep(t *testing.T) {
	tests := []struct {
		step      int
		required  string
		completed string
	}{
		{StepEligibility, models.BookingStatusDraft, models.BookingStatusQualified},
		{StepPackageTerm, models.BookingStatusQualified, models.BookingStatusQualified},
		{StepCustomer, models.BookingStatusQualified, models.BookingStatusQualified},
		{StepHookups, models.BookingStatusQualified, models.BookingStatusQualified},
		{StepDelivery, models.BookingStatusQualified, models.BookingStatusScheduled},
		{StepPaymentConsent, models.BookingStatusScheduled, models.BookingStatusScheduled},
		{StepContract, models.BookingStatusPaidSetup, models.BookingStatusContractSigned},
	}

	for _, tt := range tests {
		rule, ok := RuleForStep(tt.step)
		if !ok {
			t.Fatalf("expected rule for step %d", tt.step)
		}
		if rule.RequiredStatus != tt.required || rule.CompletedStatus != tt.completed {
			t.Errorf("step %d rule = %+v, want required=%s completed=%s", tt.step, rule, tt.required, tt.completed)
		}
	}

	for _, step := range []int{0, StepDone, 9, -1} {
		if _, ok := RuleForStep(step); ok {
			t.Errorf("step %d must not have a rule", step)
		}
	}
}

func TestMaxStepForStatus(t *testing.T) {
	tests := []struct {
		status string
		want   int
	}{
		{models.BookingStatusDraft, 1},
		{models.BookingStatusQualified, 5},
		{models.BookingStatusScheduled, 6},
		{models.BookingStatusPaidSetup, 7},
		{models.BookingStatusContractSigned, 8},
		{models.BookingStatusActive, 8},
		{models.BookingStatusPastDue, 0},
		{models.BookingStatusCanceled, 0},
		{models.BookingStatusClosed, 0},
		{"bogus", 0},
	}

	for _, tt := range tests {
		if got := MaxStepForStatus(tt.status); got != tt.want {
			t.Errorf("MaxStepForStatus(%s) = %d, want %d", tt.status, got, tt.want)
		}
	}
}
