// Package payments applies payment-provider lifecycle events to bookings
// with at-most-once business effect despite at-least-once webhook delivery.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/washplan/washplan/internal/pkg/env"
)

// EventType identifies a payment-provider lifecycle event. Dispatch is
// typed: unrecognized values are logged and ignored, never an error.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.session.completed"
	EventInvoiceCreated      EventType = "invoice.created"
	EventInvoicePaid         EventType = "invoice.paid"
	EventInvoiceFailed       EventType = "invoice.payment_failed"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
)

// CheckoutInput describes the line items of a setup checkout.
type CheckoutInput struct {
	BookingPublicID   string
	PackageType       string
	MonthlyPriceCents int
	SetupFeeCents     int
	SuccessURL        string
	CancelURL         string
}

// Provider is the abstract payment gateway: a redirect-URL factory plus a
// hook to annotate the first subscription invoice. Concrete gateway APIs
// stay outside the core.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (redirectURL string, err error)
	AnnotateInvoice(ctx context.Context, providerInvoiceID, description string) error
}

// envProvider is the default Provider wired from environment configuration.
// It hands checkout off to a hosted payment page and treats invoice
// annotation as best-effort.
type envProvider struct {
	checkoutBaseURL string
}

// NewProviderFromEnv builds the default provider from PAYMENT_CHECKOUT_URL.
func NewProviderFromEnv() Provider {
	return &envProvider{
		checkoutBaseURL: env.GetEnv("PAYMENT_CHECKOUT_URL", "https://pay.washplan.test/checkout"),
	}
}

func (p *envProvider) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error) {
	_ = ctx
	if in.BookingPublicID == "" {
		return "", fmt.Errorf("booking public id is required for checkout")
	}
	q := url.Values{}
	q.Set("booking", in.BookingPublicID)
	q.Set("package", in.PackageType)
	q.Set("monthly", fmt.Sprintf("%d", in.MonthlyPriceCents))
	q.Set("setup_fee", fmt.Sprintf("%d", in.SetupFeeCents))
	if in.SuccessURL != "" {
		q.Set("success_url", in.SuccessURL)
	}
	if in.CancelURL != "" {
		q.Set("cancel_url", in.CancelURL)
	}
	return p.checkoutBaseURL + "?" + q.Encode(), nil
}

func (p *envProvider) AnnotateInvoice(ctx context.Context, providerInvoiceID, description string) error {
	// The hosted gateway applies descriptors itself; nothing to do locally.
	_ = ctx
	_ = providerInvoiceID
	_ = description
	return nil
}

// Wire payload shapes for the event objects the processor consumes.

type checkoutSessionObject struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type invoiceObject struct {
	ID               string `json:"id"`
	Subscription     string `json:"subscription"`
	Status           string `json:"status"`
	BillingReason    string `json:"billing_reason"`
	AmountPaid       int    `json:"amount_paid"`
	Currency         string `json:"currency"`
	HostedInvoiceURL string `json:"hosted_invoice_url"`
	ReceiptURL       string `json:"receipt_url"`
}

type subscriptionObject struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
}

type eventEnvelope struct {
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func decodeEventObject(payload []byte, dst interface{}) error {
	var envlp eventEnvelope
	if err := json.Unmarshal(payload, &envlp); err != nil {
		return fmt.Errorf("malformed event payload: %w", err)
	}
	if len(envlp.Data.Object) == 0 {
		return fmt.Errorf("event payload has no data.object")
	}
	if err := json.Unmarshal(envlp.Data.Object, dst); err != nil {
		return fmt.Errorf("malformed event object: %w", err)
	}
	return nil
}

// BookingPublicID extracts the booking public id a checkout session was
// created with.
func (s *checkoutSessionObject) BookingPublicID() string {
	return s.Metadata["booking_id"]
}
