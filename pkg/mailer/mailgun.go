package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun sends billing notifications through one Mailgun domain.
type Mailgun struct {
	Sender string
	client *mg.MailgunImpl
}

// NewMailgun builds a sender. apiBase is optional, e.g. mg.APIBaseEU for EU domains.
func NewMailgun(domain, apiKey, sender string, apiBase ...string) *Mailgun {
	client := mg.NewMailgun(domain, apiKey)
	if len(apiBase) > 0 && apiBase[0] != "" {
		client.SetAPIBase(apiBase[0])
	}
	return &Mailgun{Sender: sender, client: client}
}

// Send sends an email via Mailgun. html is optional; if provided it will be used as HTML body.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}
