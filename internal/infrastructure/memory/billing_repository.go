// Package memory keeps billing state in process memory. It backs local
// development (PROFILE_STORE=memory, STORAGE_DRIVER=memory) and the tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/internal/domain/policy"
	"github.com/oksasatya/organizer-billing/internal/domain/repository"
)

// Operation names accepted by BillingRepository.FailOn.
const (
	OpGetProfile              = "GetProfile"
	OpCreateProfile           = "CreateProfile"
	OpUpdateProfile           = "UpdateProfile"
	OpListBankAccounts        = "ListBankAccounts"
	OpGetBankAccount          = "GetBankAccount"
	OpCreateBankAccount       = "CreateBankAccount"
	OpSetBankAccountActive    = "SetBankAccountActive"
	OpSetPreferredBankAccount = "SetPreferredBankAccount"
	OpSetVerificationStatus   = "SetVerificationStatus"
	OpListDocuments           = "ListDocuments"
	OpCreateDocuments         = "CreateDocuments"
)

type BillingRepository struct {
	mu       sync.Mutex
	profiles map[string]entity.BillingProfile // by user id
	accounts map[string]entity.BankAccount    // by account id
	docs     []entity.BillingDocument
	failures map[string]error
	calls    map[string]int
	now      func() time.Time
}

func NewBillingRepository() *BillingRepository {
	return &BillingRepository{
		profiles: map[string]entity.BillingProfile{},
		accounts: map[string]entity.BankAccount{},
		failures: map[string]error{},
		calls:    map[string]int{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (r *BillingRepository) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, op)
		return
	}
	r.failures[op] = err
}

// Calls reports how many times op was invoked.
func (r *BillingRepository) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// PutBankAccount stores a as-is, bypassing every rule. Used to seed state.
func (r *BillingRepository) PutBankAccount(a entity.BankAccount) entity.BankAccount {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
		a.UpdatedAt = a.CreatedAt
	}
	r.accounts[a.ID] = a
	return a
}

func (r *BillingRepository) enter(op string) error {
	r.calls[op]++
	return r.failures[op]
}

func (r *BillingRepository) GetProfile(_ context.Context, userID string) (*entity.BillingProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(OpGetProfile); err != nil {
		return nil, err
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &p, nil
}

func (r *BillingRepository) CreateProfile(_ context.Context, p *entity.BillingProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(OpCreateProfile); err != nil {
		return err
	}
	if _, ok := r.profiles[p.UserID]; ok {
		return entity.ErrStoreRejected
	}
	p.ID = uuid.NewString()
	p.CreatedAt = r.now()
	p.UpdatedAt = p.CreatedAt
	r.profiles[p.UserID] = *p
	return nil
}

func (r *BillingRepository) UpdateProfile(_ context.Context, p *entity.BillingProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(OpUpdateProfile); err != nil {
		return err
	}
	cur, ok := r.profiles[p.UserID]
	if !ok {
		return entity.ErrNotFound
	}
	if cur.EntityType() != p.EntityType() {
		return entity.ErrEntityTypeLocked
	}
	p.ID = cur.ID
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = r.now()
	r.profiles[p.UserID] = *p
	return nil
}

func (r *BillingRepository) ListBankAccounts(_ context.Context, userID string) ([]entity.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(OpListBankAccounts); err != nil {
		return nil, err
	}
	out := []entity.BankAccount{}
	for _, a := range r.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *BillingRepository) GetBankAccount(_ context.Context, accountID string) (*entity.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(OpGetBankAccount); err != nil {
		return nil, err
	}
	a, ok := r.accounts[accountID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &a, nil
}

func (r *BillingRepository) CreateBankAccount(_ context.Context, a *entity.BankAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(OpCreateBankAccount); err != nil {
		return err
	}
	if a.IsPreferred {
		return entity.ErrStoreRejected
	}
	a.ID = uuid.NewString()
	a.CreatedAt = r.now()
	a.UpdatedAt = a.CreatedAt
	r.accounts[a.ID] = *a
	return nil
}

func (r *BillingRepository) SetBankAccountActive(_ context.Context, accountID string, active bool) (*entity.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(OpSetBankAccountActive); err != nil {
		return nil, err
	}
	a, ok := r.accounts[accountID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	if !active {
		if err := policy.CanDeactivate(a); err != nil {
			return nil, err
		}
	}
	a.IsActive = active
	a.UpdatedAt = r.now()
	r.accounts[accountID] = a
	return &a, nil
}

func (r *BillingRepository) SetPreferredBankAccount(_ context.Context, userID, accountID string) (*entity.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(OpSetPreferredBankAccount); err != nil {
		return nil, err
	}
	target, ok := r.accounts[accountID]
	if !ok || target.UserID != userID {
		return nil, entity.ErrNotFound
	}
	if err := policy.CanPrefer(target); err != nil {
		return nil, err
	}
	now := r.now()
	for id, a := range r.accounts {
		if a.UserID == userID && a.IsPreferred && id != accountID {
			a.IsPreferred = false
			a.UpdatedAt = now
			r.accounts[id] = a
		}
	}
	target.IsPreferred = true
	target.UpdatedAt = now
	r.accounts[accountID] = target
	return &target, nil
}

func (r *BillingRepository) SetVerificationStatus(_ context.Context, accountID string, status entity.VerificationStatus) (*entity.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(OpSetVerificationStatus); err != nil {
		return nil, err
	}
	a, ok := r.accounts[accountID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	a.Status = status
	if !policy.KeepsPreference(status) {
		a.IsPreferred = false
	}
	a.UpdatedAt = r.now()
	r.accounts[accountID] = a
	return &a, nil
}

func (r *BillingRepository) ListDocuments(_ context.Context, userID string) ([]entity.BillingDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(OpListDocuments); err != nil {
		return nil, err
	}
	out := []entity.BillingDocument{}
	for _, d := range r.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *BillingRepository) CreateDocuments(_ context.Context, docs ...*entity.BillingDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(OpCreateDocuments); err != nil {
		return err
	}
	now := r.now()
	for _, d := range docs {
		d.ID = uuid.NewString()
		d.CreatedAt = now
	}
	for _, d := range docs {
		r.docs = append(r.docs, *d)
	}
	return nil
}

var _ repository.ProfileStore = (*BillingRepository)(nil)
