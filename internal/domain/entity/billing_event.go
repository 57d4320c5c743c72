package entity

import "time"

type BillingEventType string

const (
	EventOnboardingSubmitted     BillingEventType = "billing.onboarding_submitted"
	EventPreferredAccountChanged BillingEventType = "billing.preferred_account_changed"
)

// BillingEvent is published to the billing queue after a committed change.
type BillingEvent struct {
	ID                 string           `json:"id"`
	Type               BillingEventType `json:"type"`
	UserID             string           `json:"userId"`
	OccurredAt         time.Time        `json:"occurredAt"`
	ContactEmail       string           `json:"contactEmail,omitempty"`
	DisplayName        string           `json:"displayName,omitempty"`
	AccountID          string           `json:"accountId,omitempty"`
	BankName           string           `json:"bankName,omitempty"`
	AccountNumberLast4 string           `json:"accountNumberLast4,omitempty"`
	Documents          []DocumentType   `json:"documents,omitempty"`
}
