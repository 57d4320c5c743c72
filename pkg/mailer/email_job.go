package mailer

import (
	"errors"

	mailtpl "github.com/oksasatya/organizer-billing/pkg/mailer/templates"
)

// EmailJob is one email the notification worker renders and sends.
// Template and Data take precedence over Subject/Text/HTML when set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "onboarding_submitted", "preferred_account_changed"
	Data     map[string]any `json:"data,omitempty"`
}

var ErrNoRecipient = errors.New("email job has no recipient")

// Render returns the subject, text and html bodies of j.
func (j EmailJob) Render() (subject, text, html string, err error) {
	if j.To == "" {
		return "", "", "", ErrNoRecipient
	}
	if j.Template == "" {
		return j.Subject, j.Text, j.HTML, nil
	}
	return mailtpl.Render(j.Template, j.Data)
}
