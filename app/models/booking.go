package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Booking lifecycle statuses. CANCELED and CLOSED are terminal.
const (
	BookingStatusDraft          = "DRAFT"
	BookingStatusQualified      = "QUALIFIED"
	BookingStatusScheduled      = "SCHEDULED"
	BookingStatusPaidSetup      = "PAID_SETUP"
	BookingStatusContractSigned = "CONTRACT_SIGNED"
	BookingStatusActive         = "ACTIVE"
	BookingStatusPastDue        = "PAST_DUE"
	BookingStatusCanceled       = "CANCELED"
	BookingStatusClosed         = "CLOSED"
)

// Rental package and term types offered by the pricing table.
const (
	PackageWasher      = "WASHER"
	PackageDryer       = "DRYER"
	PackageWasherDryer = "WASHER_DRYER"

	TermMonthToMonth = "MONTH_TO_MONTH"
	TermSixMonth     = "SIX_MONTH"
	TermTwelveMonth  = "TWELVE_MONTH"
)

// Booking is the central aggregate of the rental flow. Status and
// CurrentStep are kept mutually consistent by the wizard orchestrator and
// the payment event processor; the pricing snapshot fields are written
// all-or-nothing.
type Booking struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	PublicID        string `gorm:"type:varchar(36);uniqueIndex;not null" json:"public_id"`
	AccessTokenHash string `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`

	Status      string `gorm:"type:varchar(32);not null;default:'DRAFT';index" json:"status"`
	CurrentStep int    `gorm:"not null;default:1" json:"current_step"`

	// Step 1: eligibility
	ServiceZip string `gorm:"type:varchar(10);default:''" json:"service_zip"`
	HasHookups *bool  `gorm:"default:null" json:"has_hookups,omitempty"`

	// Step 2: priced snapshot (all written together, cleared together)
	PackageType       string `gorm:"type:varchar(32);default:''" json:"package_type"`
	TermType          string `gorm:"type:varchar(32);default:''" json:"term_type"`
	MonthlyPriceCents *int   `gorm:"default:null" json:"monthly_price_cents,omitempty"`
	SetupFeeCents     *int   `gorm:"default:null" json:"setup_fee_cents,omitempty"`
	MinimumTermMonths *int   `gorm:"default:null" json:"minimum_term_months,omitempty"`

	// Step 4: hookup verification
	PlugType        string `gorm:"type:varchar(16);default:''" json:"plug_type"`
	HasPowerOutlet  *bool  `gorm:"default:null" json:"has_power_outlet,omitempty"`
	HasWaterHookups *bool  `gorm:"default:null" json:"has_water_hookups,omitempty"`

	// Step 5: delivery association (at most one active slot reference)
	DeliverySlotID *uint         `gorm:"index" json:"delivery_slot_id,omitempty"`
	DeliverySlot   *DeliverySlot `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"delivery_slot,omitempty"`

	// Step 6: recurring-charge consent
	PaymentConsentAt *time.Time `gorm:"type:timestamp;default:null" json:"payment_consent_at,omitempty"`
	PayAtDelivery    bool       `gorm:"default:false" json:"pay_at_delivery"`

	// Step 7: contract signature (immutable once set)
	ContractSignedAt  *time.Time `gorm:"type:timestamp;default:null" json:"contract_signed_at,omitempty"`
	SignerName        string     `gorm:"type:varchar(200);default:''" json:"signer_name"`
	SignerIP          string     `gorm:"type:varchar(45);default:''" json:"-"`
	SignerUserAgent   string     `gorm:"type:varchar(255);default:''" json:"-"`
	ContractVersionID *uint      `gorm:"default:null" json:"contract_version_id,omitempty"`

	// Payment-provider linkage, written only by the event processor.
	ProviderCustomerID     string `gorm:"type:varchar(191);default:'';index" json:"-"`
	ProviderSubscriptionID string `gorm:"type:varchar(191);default:'';index" json:"-"`
	CheckoutSessionID      string `gorm:"type:varchar(191);default:''" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the booking can no longer change state.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCanceled || b.Status == BookingStatusClosed
}

// HasProviderReferences reports whether provider linkage was already stamped.
func (b *Booking) HasProviderReferences() bool {
	return b.ProviderCustomerID != "" || b.ProviderSubscriptionID != ""
}

// NewBooking creates a DRAFT booking at step 1 together with its plaintext
// access token. Only the SHA-256 hash of the token is stored.
func NewBooking() (*Booking, string) {
	token := uuid.New().String()
	return &Booking{
		PublicID:        uuid.New().String(),
		AccessTokenHash: HashAccessToken(token),
		Status:          BookingStatusDraft,
		CurrentStep:     1,
	}, token
}

// HashAccessToken returns the hex SHA-256 digest used to look up bookings
// by access token.
func HashAccessToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
