package services

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends transactional email
type Mailer interface {
	Send(ctx context.Context, to, subject, plainText, html string) error
}

// SendGridMailer delivers mail through the SendGrid v3 API
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridMailer creates a mailer sending from the given address
func NewSendGridMailer(apiKey, fromAddress string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Taskflow", fromAddress),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, to, subject, plainText, html string) error {
	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", to), plainText, html)
	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid responded with status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
