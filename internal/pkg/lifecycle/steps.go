package lifecycle

import "github.com/washplan/washplan/app/models"

// Step numbers of the intake wizard. Step 8 is the terminal marker set by
// completing step 7; it has no rule of its own and cannot be submitted.
const (
	StepEligibility    = 1
	StepPackageTerm    = 2
	StepCustomer       = 3
	StepHookups        = 4
	StepDelivery       = 5
	StepPaymentConsent = 6
	StepContract       = 7
	StepDone           = 8
)

// StepRule declares the minimum status required to attempt a step and the
// status the booking holds after completing it. Required equal to completed
// means the step does not by itself change status.
type StepRule struct {
	RequiredStatus  string
	CompletedStatus string
}

var stepRules = map[int]StepRule{
	StepEligibility:    {RequiredStatus: models.BookingStatusDraft, CompletedStatus: models.BookingStatusQualified},
	StepPackageTerm:    {RequiredStatus: models.BookingStatusQualified, CompletedStatus: models.BookingStatusQualified},
	StepCustomer:       {RequiredStatus: models.BookingStatusQualified, CompletedStatus: models.BookingStatusQualified},
	StepHookups:        {RequiredStatus: models.BookingStatusQualified, CompletedStatus: models.BookingStatusQualified},
	StepDelivery:       {RequiredStatus: models.BookingStatusQualified, CompletedStatus: models.BookingStatusScheduled},
	StepPaymentConsent: {RequiredStatus: models.BookingStatusScheduled, CompletedStatus: models.BookingStatusScheduled},
	StepContract:       {RequiredStatus: models.BookingStatusPaidSetup, CompletedStatus: models.BookingStatusContractSigned},
}

// RuleForStep returns the rule for a wizard step, or false when the step
// number is not submittable.
func RuleForStep(step int) (StepRule, bool) {
	rule, ok := stepRules[step]
	return rule, ok
}

// MaxStepForStatus bounds which step a resumed booking may re-enter.
// Statuses outside the wizard flow map to 0.
func MaxStepForStatus(status string) int {
	switch status {
	case models.BookingStatusDraft:
		return StepEligibility
	case models.BookingStatusQualified:
		return StepDelivery
	case models.BookingStatusScheduled:
		return StepPaymentConsent
	case models.BookingStatusPaidSetup:
		return StepContract
	case models.BookingStatusContractSigned, models.BookingStatusActive:
		return StepDone
	default:
		return 0
	}
}
