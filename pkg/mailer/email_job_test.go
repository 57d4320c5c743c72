package mailer

import (
	"testing"

	"github.com/stretchr/testify/require"

	mailtpl "github.com/oksasatya/organizer-billing/pkg/mailer/templates"
)

func TestEmailJobRender(t *testing.T) {
	_, _, _, err := EmailJob{Template: mailtpl.OnboardingSubmitted}.Render()
	require.ErrorIs(t, err, ErrNoRecipient)

	subject, text, html, err := EmailJob{To: "a@example.com", Subject: "s", Text: "t"}.Render()
	require.NoError(t, err)
	require.Equal(t, []string{"s", "t", ""}, []string{subject, text, html})

	subject, _, _, err = EmailJob{
		To:       "a@example.com",
		Template: mailtpl.PreferredAccountChanged,
		Data:     map[string]any{"AppName": "billing", "BankName": "Nequi", "AccountLast4": "1234"},
	}.Render()
	require.NoError(t, err)
	require.Equal(t, "billing: your payout account changed", subject)
}
