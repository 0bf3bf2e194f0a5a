package models

import "time"

// PaymentRecord captures one settled provider invoice. Keyed by the
// provider invoice id so redelivered invoice events update instead of
// duplicating.
type PaymentRecord struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	BookingID         uint       `gorm:"not null;index" json:"booking_id"`
	ProviderInvoiceID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_invoice_id"`
	AmountCents       int        `gorm:"not null" json:"amount_cents"`
	Currency          string     `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	PaidAt            *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	ReceiptURL        string     `gorm:"type:varchar(500);default:''" json:"receipt_url"`
	HostedInvoiceURL  string     `gorm:"type:varchar(500);default:''" json:"hosted_invoice_url"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
