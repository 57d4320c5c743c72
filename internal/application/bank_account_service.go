package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/internal/domain/policy"
	repo "github.com/oksasatya/organizer-billing/internal/domain/repository"
)

// BankAccountService guards every bank account mutation so that a user has
// at most one preferred account and a preferred account is active and verified.
// Each operation is a single store write.
type BankAccountService struct {
	Profiles repo.ProfileStore
	Cache    SnapshotCache
	Events   EventPublisher
	Logger   *logrus.Logger
}

func NewBankAccountService(profiles repo.ProfileStore, cache SnapshotCache, events EventPublisher, logger *logrus.Logger) *BankAccountService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BankAccountService{Profiles: profiles, Cache: cache, Events: events, Logger: logger}
}

func (s *BankAccountService) Activate(ctx context.Context, userID, accountID string) (*entity.BankAccount, error) {
	a, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if a.IsActive {
		return a, nil
	}
	updated, err := s.Profiles.SetBankAccountActive(ctx, accountID, true)
	if err != nil {
		return nil, s.writeError("activate", accountID, err)
	}
	s.changed(ctx, userID)
	return updated, nil
}

func (s *BankAccountService) Deactivate(ctx context.Context, userID, accountID string) (*entity.BankAccount, error) {
	a, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanDeactivate(*a); err != nil {
		return nil, err
	}
	if !a.IsActive {
		return a, nil
	}
	updated, err := s.Profiles.SetBankAccountActive(ctx, accountID, false)
	if err != nil {
		return nil, s.writeError("deactivate", accountID, err)
	}
	s.changed(ctx, userID)
	return updated, nil
}

// SetPreferred promotes accountID and demotes the user's previous preferred
// account in the same store operation.
func (s *BankAccountService) SetPreferred(ctx context.Context, userID, accountID string) (*entity.BankAccount, error) {
	a, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanPrefer(*a); err != nil {
		return nil, err
	}
	if a.IsPreferred {
		return a, nil
	}
	updated, err := s.Profiles.SetPreferredBankAccount(ctx, userID, accountID)
	if err != nil {
		return nil, s.writeError("set preferred", accountID, err)
	}
	s.changed(ctx, userID)
	s.publishPreferred(ctx, userID, updated)
	return updated, nil
}

// SetVerificationStatus is the back-office review decision on an account.
func (s *BankAccountService) SetVerificationStatus(ctx context.Context, accountID string, status entity.VerificationStatus) (*entity.BankAccount, error) {
	if !status.IsValid() {
		return nil, entity.ErrValidationFailed.WithDetails(map[string]string{"status": "must be one of: pending, verified, rejected"})
	}
	a, err := s.Profiles.GetBankAccount(ctx, accountID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, entity.ErrBankAccountNotFound
	}
	if err != nil {
		return nil, entity.StoreError(fmt.Errorf("load bank account %s: %w", accountID, err))
	}
	updated, err := s.Profiles.SetVerificationStatus(ctx, accountID, status)
	if err != nil {
		return nil, s.writeError("set verification status", accountID, err)
	}
	if a.IsPreferred && !policy.KeepsPreference(status) {
		s.Logger.WithFields(logrus.Fields{"account_id": accountID, "user_id": a.UserID}).Info("preferred account demoted after review")
	}
	s.changed(ctx, a.UserID)
	return updated, nil
}

func (s *BankAccountService) owned(ctx context.Context, userID, accountID string) (*entity.BankAccount, error) {
	a, err := s.Profiles.GetBankAccount(ctx, accountID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, entity.ErrBankAccountNotFound
	}
	if err != nil {
		return nil, entity.StoreError(fmt.Errorf("load bank account %s: %w", accountID, err))
	}
	if a.UserID != userID {
		return nil, entity.ErrBankAccountNotFound
	}
	return a, nil
}

// writeError keeps invariant violations reported by the store (which re-checks
// them under its own lock) and classifies everything else.
func (s *BankAccountService) writeError(op, accountID string, err error) error {
	if e, ok := entity.AsError(err); ok {
		return e
	}
	if errors.Is(err, entity.ErrNotFound) {
		return entity.ErrBankAccountNotFound
	}
	s.Logger.WithError(err).WithFields(logrus.Fields{"op": op, "account_id": accountID}).Error("bank account update failed")
	return entity.StoreError(fmt.Errorf("%s %s: %w", op, accountID, err))
}

func (s *BankAccountService) changed(ctx context.Context, userID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, userID); err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("snapshot cache invalidation failed")
	}
}

func (s *BankAccountService) publishPreferred(ctx context.Context, userID string, a *entity.BankAccount) {
	if s.Events == nil {
		return
	}
	ev := entity.BillingEvent{
		ID:                 uuid.NewString(),
		Type:               entity.EventPreferredAccountChanged,
		UserID:             userID,
		OccurredAt:         time.Now().UTC(),
		AccountID:          a.ID,
		BankName:           a.BankName,
		AccountNumberLast4: a.AccountNumberLast4(),
	}
	if p, err := s.Profiles.GetProfile(ctx, userID); err == nil && p.Identity != nil {
		ev.ContactEmail = p.Contact.Email
		ev.DisplayName = p.Identity.DisplayName()
	}
	if err := s.Events.PublishJSON(ctx, ev); err != nil {
		s.Logger.WithError(err).WithField("event", ev.Type).Warn("billing event publish failed")
	}
}
