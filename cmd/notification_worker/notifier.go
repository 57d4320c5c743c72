package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/organizer-billing/config"
	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/pkg/mailer"
	mailtpl "github.com/oksasatya/organizer-billing/pkg/mailer/templates"
)

type sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// outcome tells the consumer loop how to settle a delivery.
type outcome int

const (
	ack outcome = iota
	reject
	retry
)

var errUnknownEvent = errors.New("unknown billing event type")

type notifier struct {
	cfg         *config.Config
	mail        sender
	logger      *logrus.Logger
	sendTimeout time.Duration
}

func (n *notifier) handle(ctx context.Context, body []byte) outcome {
	var ev entity.BillingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		n.logger.WithError(err).Warn("bad billing event payload")
		return reject
	}
	log := n.logger.WithFields(logrus.Fields{"event_id": ev.ID, "event": ev.Type, "user_id": ev.UserID})

	if ev.ContactEmail == "" {
		log.Info("billing event without contact email; nothing to send")
		return ack
	}
	job, err := jobFromEvent(n.cfg, ev)
	if err != nil {
		log.WithError(err).Warn("billing event skipped")
		return reject
	}
	subject, text, html, err := job.Render()
	if err != nil {
		log.WithError(err).Error("render failed")
		return reject
	}

	c, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()
	if err := n.mail.Send(c, job.To, subject, text, html); err != nil {
		log.WithError(err).Warn("send failed; requeueing")
		return retry
	}
	log.WithField("template", job.Template).Info("billing email sent")
	return ack
}

func jobFromEvent(cfg *config.Config, ev entity.BillingEvent) (mailer.EmailJob, error) {
	opts := []mailtpl.Option{
		mailtpl.WithTime(ev.OccurredAt),
		mailtpl.WithBankAccount(ev.BankName, ev.AccountNumberLast4),
	}
	var template string
	switch ev.Type {
	case entity.EventOnboardingSubmitted:
		template = mailtpl.OnboardingSubmitted
		docs := make([]string, 0, len(ev.Documents))
		for _, d := range ev.Documents {
			docs = append(docs, string(d))
		}
		opts = append(opts, mailtpl.WithDocuments(docs))
	case entity.EventPreferredAccountChanged:
		template = mailtpl.PreferredAccountChanged
	default:
		return mailer.EmailJob{}, fmt.Errorf("%w: %q", errUnknownEvent, ev.Type)
	}

	data := mailtpl.NewBaseEmailData(cfg, template, ev.DisplayName, ev.ContactEmail, opts...)
	return mailer.EmailJob{
		To:       ev.ContactEmail,
		Template: template,
		Data:     mailtpl.ToMap(data),
	}, nil
}
