// Package email sends transactional mail through SendGrid. The sender is
// an injected collaborator constructed once at startup, never a
// module-level singleton, so handlers can take a fake in tests.
package email

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/cleanstreet/clean-street-api/config"
	templates "github.com/cleanstreet/clean-street-api/templates/html"
)

// Sender delivers a single transactional email
type Sender interface {
	Send(toName, toEmail, subject, plainText string) error
}

type sendgridSender struct {
	apiKey   string
	from     string
	fromName string
}

// NewSender builds the SendGrid-backed sender from config
func NewSender(conf *config.Config) Sender {
	return &sendgridSender{
		apiKey:   conf.SendgridAPIKey,
		from:     conf.EmailFrom,
		fromName: conf.EmailFromName,
	}
}

func (s *sendgridSender) Send(toName, toEmail, subject, plainText string) error {
	if s.apiKey == "" {
		return fmt.Errorf("email transport not configured")
	}
	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail(toName, toEmail)
	htmlContent := templates.RenderGenericEmail(subject, plainText)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		zap.S().Errorw("failed to send email", "error", err, "to", toEmail)
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", toEmail)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	zap.S().Infow("email sent successfully", "to", toEmail, "subject", subject)
	return nil
}

// Fake records sent mail in memory for tests
type Fake struct {
	Sent []FakeMessage
	Err  error
}

// FakeMessage is one email captured by the fake sender
type FakeMessage struct {
	ToName  string
	ToEmail string
	Subject string
	Body    string
}

// Send implements Sender
func (f *Fake) Send(toName, toEmail, subject, plainText string) error {
	if f.Err != nil {
		return f.Err
	}
	f.Sent = append(f.Sent, FakeMessage{ToName: toName, ToEmail: toEmail, Subject: subject, Body: plainText})
	return nil
}
