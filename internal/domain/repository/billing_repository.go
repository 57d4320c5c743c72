package repository

import (
	"context"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
)

// ProfileStore persists billing profiles, bank accounts and document rows.
// Lookups return entity.ErrNotFound when nothing matches; infrastructure
// failures wrap entity.ErrStoreUnavailable or entity.ErrStoreRejected.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*entity.BillingProfile, error)
	CreateProfile(ctx context.Context, p *entity.BillingProfile) error
	// UpdateProfile never changes the stored entity type.
	UpdateProfile(ctx context.Context, p *entity.BillingProfile) error

	ListBankAccounts(ctx context.Context, userID string) ([]entity.BankAccount, error)
	GetBankAccount(ctx context.Context, accountID string) (*entity.BankAccount, error)
	CreateBankAccount(ctx context.Context, a *entity.BankAccount) error
	// SetBankAccountActive refuses to deactivate a preferred account with
	// entity.ErrCannotDeactivatePreferred.
	SetBankAccountActive(ctx context.Context, accountID string, active bool) (*entity.BankAccount, error)
	// SetPreferredBankAccount demotes the user's current preferred account and
	// promotes accountID as one operation.
	SetPreferredBankAccount(ctx context.Context, userID, accountID string) (*entity.BankAccount, error)
	// SetVerificationStatus also clears the preferred flag when status is not verified.
	SetVerificationStatus(ctx context.Context, accountID string, status entity.VerificationStatus) (*entity.BankAccount, error)

	ListDocuments(ctx context.Context, userID string) ([]entity.BillingDocument, error)
	// CreateDocuments inserts all rows or none.
	CreateDocuments(ctx context.Context, docs ...*entity.BillingDocument) error
}
