// Package notifications renders and sends customer-facing emails for
// booking lifecycle events.
package notifications

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/washplan/washplan/app/models"
	"github.com/washplan/washplan/internal/pkg/mail"
)

type template struct {
	subject string
	body    func(booking *models.Booking) string
}

var templates = map[string]template{
	"payment_failed": {
		subject: "Action needed: your rental payment failed",
		body: func(b *models.Booking) string {
			return fmt.Sprintf(
				"<p>We could not collect the monthly payment for your rental (booking %s).</p>"+
					"<p>Please update your payment method to keep your appliances. We will retry automatically.</p>",
				b.PublicID,
			)
		},
	},
	"subscription_ended": {
		subject: "Your rental subscription has ended",
		body: func(b *models.Booking) string {
			return fmt.Sprintf(
				"<p>Your rental subscription for booking %s has ended and the booking was canceled.</p>"+
					"<p>We will contact you to arrange appliance pickup.</p>",
				b.PublicID,
			)
		},
	},
	"setup_payment_receipt": {
		subject: "Payment received for your appliance rental",
		body: func(b *models.Booking) string {
			return fmt.Sprintf(
				"<p>We received your setup payment for booking %s. Your delivery is confirmed.</p>",
				b.PublicID,
			)
		},
	},
}

// Send delivers the notification of the given kind to the customer email.
// Unknown kinds and missing addresses are logged and dropped rather than
// retried, since retrying cannot fix either.
func Send(kind, email string, booking *models.Booking) error {
	tpl, ok := templates[kind]
	if !ok {
		log.Warnf("[Notifications] unknown notification kind %s for booking %s", kind, booking.PublicID)
		return nil
	}
	if email == "" {
		log.Warnf("[Notifications] no customer email for booking %s, dropping %s notification", booking.PublicID, kind)
		return nil
	}
	return mail.SendMail(email, tpl.subject, tpl.body(booking))
}
