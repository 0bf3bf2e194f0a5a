package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Step1Payload carries the eligibility check.
type Step1Payload struct {
	ServiceZip string `json:"serviceZip" validate:"required,len=5,numeric"`
	HasHookups *bool  `json:"hasHookups" validate:"required"`
}

// Step2Payload is dual-mode: exactly one of PackageType or TermType must be
// set per call. A package selection invalidates prior pricing; a term
// selection computes the full priced snapshot.
type Step2Payload struct {
	PackageType string `json:"packageType" validate:"omitempty,oneof=WASHER DRYER WASHER_DRYER"`
	TermType    string `json:"termType" validate:"omitempty,oneof=MONTH_TO_MONTH SIX_MONTH TWELVE_MONTH"`
}

// Step3Payload carries customer contact and delivery address data.
type Step3Payload struct {
	FirstName   string `json:"firstName" validate:"required,min=1,max=100"`
	LastName    string `json:"lastName" validate:"required,min=1,max=100"`
	Email       string `json:"email" validate:"required,email,max=200"`
	Phone       string `json:"phone" validate:"omitempty,max=30"`
	Street      string `json:"street" validate:"required,max=200"`
	Unit        string `json:"unit" validate:"omitempty,max=50"`
	City        string `json:"city" validate:"required,max=100"`
	Zip         string `json:"zip" validate:"required,min=5,max=10"`
	AccessNotes string `json:"accessNotes" validate:"omitempty,max=1000"`
}

// Step4Payload carries the hookup verification.
type Step4Payload struct {
	PlugType        string `json:"plugType" validate:"required,oneof=STANDARD_120V DRYER_240V"`
	HasPowerOutlet  *bool  `json:"hasPowerOutlet" validate:"required"`
	HasWaterHookups *bool  `json:"hasWaterHookups" validate:"required"`
}

// Step5Payload selects a delivery slot.
type Step5Payload struct {
	DeliverySlotID uint `json:"deliverySlotId" validate:"required"`
}

// Step6Payload records recurring-charge consent.
type Step6Payload struct {
	ConsentRecurring *bool `json:"consentRecurring" validate:"required,eq=true"`
	PayAtDelivery    bool  `json:"payAtDelivery"`
}

// Step7Payload carries the contract signature.
type Step7Payload struct {
	SignatureName string `json:"signatureName" validate:"required,min=2,max=200"`
}

// ValidationError carries a field -> message map for 422 responses.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "payload validation failed: " + strings.Join(parts, "; ")
}

// decodePayload unmarshals raw JSON into dst and runs struct validation,
// translating validator failures into a field-level ValidationError.
func decodePayload(raw []byte, dst interface{}) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return &ValidationError{Fields: map[string]string{"payload": "malformed JSON body"}}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		fields := make(map[string]string)
		if ok := errors.As(err, &verrs); ok {
			for _, fe := range verrs {
				fields[jsonFieldName(fe)] = messageForTag(fe)
			}
		} else {
			fields["payload"] = err.Error()
		}
		return &ValidationError{Fields: fields}
	}
	return nil
}

func jsonFieldName(fe validator.FieldError) string {
	// Field() is the Go name; lower the first rune to match the JSON tags
	// used across the payload structs.
	name := fe.Field()
	if name == "" {
		return "payload"
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "eq":
		return fmt.Sprintf("must equal %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation rule %q", fe.Tag())
	}
}
