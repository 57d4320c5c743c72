package entity

import "time"

type AccountType string

const (
	AccountSavings  AccountType = "savings"
	AccountChecking AccountType = "checking"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	default:
		return false
	}
}

// BankAccount is a payout destination. At most one account per user is
// preferred, and a preferred account is always active and verified.
type BankAccount struct {
	ID            string             `json:"id"`
	UserID        string             `json:"userId"`
	BankName      string             `json:"bankName"`
	AccountType   AccountType        `json:"accountType"`
	AccountNumber string             `json:"accountNumber"`
	HolderName    string             `json:"holderName,omitempty"`
	IsActive      bool               `json:"isActive"`
	IsPreferred   bool               `json:"isPreferred"`
	Status        VerificationStatus `json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// AccountNumberLast4 is what notifications and logs show instead of the full number.
func (a BankAccount) AccountNumberLast4() string {
	if len(a.AccountNumber) <= 4 {
		return a.AccountNumber
	}
	return a.AccountNumber[len(a.AccountNumber)-4:]
}
