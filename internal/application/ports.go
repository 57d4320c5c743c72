package application

import (
	"context"
	"expvar"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
)

// SnapshotCache keeps rendered billing snapshots per user.
type SnapshotCache interface {
	Get(ctx context.Context, userID string) (*entity.BillingSnapshot, bool, error)
	Set(ctx context.Context, userID string, snap *entity.BillingSnapshot) error
	Invalidate(ctx context.Context, userID string) error
}

// EventPublisher pushes billing events to the message bus.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// ProfileIndexer makes billing profiles searchable for back-office review.
type ProfileIndexer interface {
	IndexProfile(ctx context.Context, p *entity.BillingProfile) error
}

var (
	metricSubmissions           = expvar.NewInt("billing_submissions")
	metricSubmissionFailures    = expvar.NewInt("billing_submission_failures")
	metricRollbacks             = expvar.NewInt("billing_rollbacks")
	metricRollbackDeleteFailure = expvar.NewInt("billing_rollback_delete_failures")
)
