package policy

import "github.com/oksasatya/organizer-billing/internal/domain/entity"

// NewOnboardingAccount builds the account row created by an onboarding
// submission. Preference is never assigned at creation.
func NewOnboardingAccount(userID, bankName string, accountType entity.AccountType, number, holder string) *entity.BankAccount {
	return &entity.BankAccount{
		UserID:        userID,
		BankName:      bankName,
		AccountType:   accountType,
		AccountNumber: number,
		HolderName:    holder,
		IsActive:      true,
		IsPreferred:   false,
		Status:        entity.VerificationPending,
	}
}

// CanDeactivate rejects deactivating the preferred account.
func CanDeactivate(a entity.BankAccount) error {
	if a.IsPreferred {
		return entity.ErrCannotDeactivatePreferred
	}
	return nil
}

// CanPrefer requires the account to be active and verified, checked in that order.
func CanPrefer(a entity.BankAccount) error {
	if !a.IsActive {
		return entity.ErrCannotPreferInactive
	}
	if a.Status != entity.VerificationVerified {
		return entity.ErrCannotPreferUnverified
	}
	return nil
}

// KeepsPreference reports whether an account may stay preferred after its
// verification status changes to status.
func KeepsPreference(status entity.VerificationStatus) bool {
	return status == entity.VerificationVerified
}

// PreferredCount counts preferred accounts; anything above one is a broken invariant.
func PreferredCount(accounts []entity.BankAccount) int {
	n := 0
	for _, a := range accounts {
		if a.IsPreferred {
			n++
		}
	}
	return n
}
