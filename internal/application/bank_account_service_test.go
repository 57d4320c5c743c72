package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/organizer-billing/internal/application"
	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/internal/domain/policy"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/memory"
)

func seedAccount(repo *memory.BillingRepository, userID string, active bool, status entity.VerificationStatus, preferred bool) entity.BankAccount {
	return repo.PutBankAccount(entity.BankAccount{
		UserID:        userID,
		BankName:      "Bancolombia",
		AccountType:   entity.AccountSavings,
		AccountNumber: "12345678901",
		IsActive:      active,
		IsPreferred:   preferred,
		Status:        status,
	})
}

func accounts(t *testing.T, repo *memory.BillingRepository, userID string) map[string]entity.BankAccount {
	t.Helper()
	list, err := repo.ListBankAccounts(context.Background(), userID)
	require.NoError(t, err)
	out := make(map[string]entity.BankAccount, len(list))
	for _, a := range list {
		out[a.ID] = a
	}
	return out
}

func TestSetPreferred_UnverifiedRejected_VerifiedPromoted(t *testing.T) {
	repo := memory.NewBillingRepository()
	verified := seedAccount(repo, "user-1", true, entity.VerificationVerified, false)
	pending := seedAccount(repo, "user-1", true, entity.VerificationPending, false)
	svc := application.NewBankAccountService(repo, nil, nil, quietLogger())
	ctx := context.Background()

	_, err := svc.SetPreferred(ctx, "user-1", pending.ID)
	requireCode(t, err, entity.CodeCannotPreferUnverified)
	require.Zero(t, repo.Calls(memory.OpSetPreferredBankAccount))

	got, err := svc.SetPreferred(ctx, "user-1", verified.ID)
	require.NoError(t, err)
	require.True(t, got.IsPreferred)

	state := accounts(t, repo, "user-1")
	require.True(t, state[verified.ID].IsPreferred)
	require.Equal(t, pending, state[pending.ID])
}

func TestSetPreferred_InactiveCheckedFirst(t *testing.T) {
	repo := memory.NewBillingRepository()
	a := seedAccount(repo, "user-1", false, entity.VerificationPending, false)
	svc := application.NewBankAccountService(repo, nil, nil, quietLogger())

	_, err := svc.SetPreferred(context.Background(), "user-1", a.ID)
	requireCode(t, err, entity.CodeCannotPreferInactive)
}

func TestDeactivate_PreferredRejected(t *testing.T) {
	repo := memory.NewBillingRepository()
	preferred := seedAccount(repo, "user-1", true, entity.VerificationVerified, true)
	svc := application.NewBankAccountService(repo, nil, nil, quietLogger())

	_, err := svc.Deactivate(context.Background(), "user-1", preferred.ID)
	requireCode(t, err, entity.CodeCannotDeactivatePreferred)
	require.Zero(t, repo.Calls(memory.OpSetBankAccountActive))
	require.Equal(t, preferred, accounts(t, repo, "user-1")[preferred.ID])
}

func TestActivateDeactivate_Idempotent(t *testing.T) {
	repo := memory.NewBillingRepository()
	a := seedAccount(repo, "user-1", true, entity.VerificationPending, false)
	cache := newMapCache()
	svc := application.NewBankAccountService(repo, cache, nil, quietLogger())
	ctx := context.Background()

	got, err := svc.Activate(ctx, "user-1", a.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
	require.Zero(t, repo.Calls(memory.OpSetBankAccountActive))

	got, err = svc.Deactivate(ctx, "user-1", a.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	got, err = svc.Deactivate(ctx, "user-1", a.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
	require.Equal(t, 1, repo.Calls(memory.OpSetBankAccountActive))

	got, err = svc.Activate(ctx, "user-1", a.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
	require.Equal(t, []string{"user-1", "user-1"}, cache.invalidated)
}

func TestBankAccounts_OtherUsersAccountIsNotFound(t *testing.T) {
	repo := memory.NewBillingRepository()
	a := seedAccount(repo, "user-2", true, entity.VerificationVerified, false)
	svc := application.NewBankAccountService(repo, nil, nil, quietLogger())
	ctx := context.Background()

	_, err := svc.SetPreferred(ctx, "user-1", a.ID)
	requireCode(t, err, entity.CodeBankAccountNotFound)
	_, err = svc.Deactivate(ctx, "user-1", a.ID)
	requireCode(t, err, entity.CodeBankAccountNotFound)
	_, err = svc.Activate(ctx, "user-1", "missing")
	requireCode(t, err, entity.CodeBankAccountNotFound)
}

func TestSetPreferred_AtMostOnePreferredAcrossSequence(t *testing.T) {
	repo := memory.NewBillingRepository()
	events := &recordingPublisher{}
	svc := application.NewBankAccountService(repo, nil, events, quietLogger())
	ctx := context.Background()

	ids := make([]string, 0, 4)
	for i := 0; i < 3; i++ {
		ids = append(ids, seedAccount(repo, "user-1", true, entity.VerificationVerified, false).ID)
	}
	ids = append(ids, seedAccount(repo, "user-1", true, entity.VerificationPending, false).ID)

	steps := []func() error{
		func() error { _, err := svc.SetPreferred(ctx, "user-1", ids[0]); return err },
		func() error { _, err := svc.SetPreferred(ctx, "user-1", ids[1]); return err },
		func() error { _, err := svc.Deactivate(ctx, "user-1", ids[1]); return err },
		func() error { _, err := svc.Deactivate(ctx, "user-1", ids[0]); return err },
		func() error { _, err := svc.SetPreferred(ctx, "user-1", ids[3]); return err },
		func() error { _, err := svc.SetPreferred(ctx, "user-1", ids[2]); return err },
		func() error { _, err := svc.SetPreferred(ctx, "user-1", ids[2]); return err },
	}
	for i, step := range steps {
		_ = step()
		list, err := repo.ListBankAccounts(ctx, "user-1")
		require.NoError(t, err)
		require.LessOrEqual(t, policy.PreferredCount(list), 1, "after step %d", i)
		for _, a := range list {
			if a.IsPreferred {
				require.True(t, a.IsActive)
				require.Equal(t, entity.VerificationVerified, a.Status)
			}
		}
	}

	state := accounts(t, repo, "user-1")
	require.True(t, state[ids[2]].IsPreferred)
	require.False(t, state[ids[0]].IsActive)
	require.Len(t, events.events, 3)
	require.Equal(t, entity.EventPreferredAccountChanged, events.events[0].Type)
}

func TestSetVerificationStatus_RejectingPreferredDemotesIt(t *testing.T) {
	repo := memory.NewBillingRepository()
	preferred := seedAccount(repo, "user-1", true, entity.VerificationVerified, true)
	svc := application.NewBankAccountService(repo, nil, nil, quietLogger())
	ctx := context.Background()

	_, err := svc.SetVerificationStatus(ctx, preferred.ID, "approved")
	requireCode(t, err, entity.CodeValidationFailed)

	got, err := svc.SetVerificationStatus(ctx, preferred.ID, entity.VerificationRejected)
	require.NoError(t, err)
	require.False(t, got.IsPreferred)
	require.Equal(t, entity.VerificationRejected, got.Status)

	// a demoted account can now be deactivated
	_, err = svc.Deactivate(ctx, "user-1", preferred.ID)
	require.NoError(t, err)
}

func TestSetPreferred_StoreUnavailable(t *testing.T) {
	repo := memory.NewBillingRepository()
	a := seedAccount(repo, "user-1", true, entity.VerificationVerified, false)
	repo.FailOn(memory.OpSetPreferredBankAccount, errDial)
	svc := application.NewBankAccountService(repo, nil, nil, quietLogger())

	_, err := svc.SetPreferred(context.Background(), "user-1", a.ID)
	requireCode(t, err, entity.CodeConnectionFailed)
	require.False(t, accounts(t, repo, "user-1")[a.ID].IsPreferred)
}
