package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/organizer-billing/config"
	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	mailtpl "github.com/oksasatya/organizer-billing/pkg/mailer/templates"
)

type sentMail struct{ to, subject, text, html string }

type fakeSender struct {
	err  error
	sent []sentMail
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, text, html})
	return nil
}

func newNotifier(s sender) *notifier {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &notifier{
		cfg:         &config.Config{AppName: "organizer-billing", CompanyName: "Boletera"},
		mail:        s,
		logger:      l,
		sendTimeout: time.Second,
	}
}

func eventBody(t *testing.T, ev entity.BillingEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func submitted() entity.BillingEvent {
	return entity.BillingEvent{
		ID:                 "b3c1",
		Type:               entity.EventOnboardingSubmitted,
		UserID:             "u-1",
		OccurredAt:         time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		ContactEmail:       "billing@acme.example",
		DisplayName:        "Acme SAS",
		BankName:           "Davivienda",
		AccountNumberLast4: "4321",
		Documents:          []entity.DocumentType{entity.DocumentRUT, entity.DocumentBankCertificate},
	}
}

func TestHandle_SendsOnboardingEmail(t *testing.T) {
	s := &fakeSender{}
	got := newNotifier(s).handle(context.Background(), eventBody(t, submitted()))

	require.Equal(t, ack, got)
	require.Len(t, s.sent, 1)
	assert.Equal(t, "billing@acme.example", s.sent[0].to)
	assert.Equal(t, "Boletera: we received your billing information", s.sent[0].subject)
	assert.Contains(t, s.sent[0].text, "Hi Acme SAS,")
	assert.Contains(t, s.sent[0].text, "- RUT")
	assert.Contains(t, s.sent[0].html, "4321")
}

func TestHandle_PreferredAccountChanged(t *testing.T) {
	ev := submitted()
	ev.Type = entity.EventPreferredAccountChanged
	ev.Documents = nil
	s := &fakeSender{}

	require.Equal(t, ack, newNotifier(s).handle(context.Background(), eventBody(t, ev)))
	require.Len(t, s.sent, 1)
	assert.Equal(t, "Boletera: your payout account changed", s.sent[0].subject)
}

func TestHandle_Settlement(t *testing.T) {
	noContact := submitted()
	noContact.ContactEmail = ""
	unknown := submitted()
	unknown.Type = "billing.something_else"

	tests := []struct {
		name string
		body []byte
		err  error
		want outcome
	}{
		{"bad json", []byte("{"), nil, reject},
		{"no contact email", eventBody(t, noContact), nil, ack},
		{"unknown type", eventBody(t, unknown), nil, reject},
		{"send failure", eventBody(t, submitted()), errors.New("mailgun: 502"), retry},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &fakeSender{err: tc.err}
			assert.Equal(t, tc.want, newNotifier(s).handle(context.Background(), tc.body))
			assert.Empty(t, s.sent)
		})
	}
}

func TestJobFromEvent(t *testing.T) {
	job, err := jobFromEvent(&config.Config{AppName: "x"}, submitted())
	require.NoError(t, err)
	assert.Equal(t, mailtpl.OnboardingSubmitted, job.Template)
	assert.Equal(t, "billing@acme.example", job.To)
	assert.Equal(t, []any{"rut", "bank_certificate"}, job.Data["Documents"])
	assert.Equal(t, "4321", job.Data["AccountLast4"])
}
