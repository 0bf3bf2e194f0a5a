// Package mail delivers transactional booking emails over SMTP.
package mail

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/washplan/washplan/internal/pkg/env"
)

// SendMail sends a single HTML email. Without SMTP_HOST configured the
// message is logged and dropped, so local development never needs a mail
// server.
func SendMail(to, subject, htmlBody string) error {
	host := env.GetEnv("SMTP_HOST", "")
	if host == "" {
		log.Printf("SMTP_HOST not set, dropping mail to %s (%s)", to, subject)
		return nil
	}

	port := env.GetEnv("SMTP_PORT", "587")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "no-reply@washplan.test")
	fromName := env.GetEnv("SMTP_FROM_NAME", "WashPlan")

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	msg := buildMessage(fromName, sender, to, subject, htmlBody)
	addr := fmt.Sprintf("%s:%s", host, port)

	if err := smtp.SendMail(addr, auth, sender, []string{to}, msg); err != nil {
		log.Printf("SMTP send error: %v", err)
		return err
	}
	log.Printf("Email sent to %s via %s", to, addr)
	return nil
}

func buildMessage(fromName, sender, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, sender)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
