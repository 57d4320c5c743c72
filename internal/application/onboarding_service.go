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

// OnboardingOptions bounds the I/O done by a submission.
type OnboardingOptions struct {
	MaxUploadBytes   int64
	StoreCallTimeout time.Duration
	RollbackTimeout  time.Duration
}

func DefaultOnboardingOptions() OnboardingOptions {
	return OnboardingOptions{
		MaxUploadBytes:   5 << 20,
		StoreCallTimeout: 30 * time.Second,
		RollbackTimeout:  15 * time.Second,
	}
}

// OnboardingService runs the billing onboarding submission: validate, upload
// KYC documents, persist profile/account/document rows, and delete this
// run's uploads again if anything after the first upload fails.
type OnboardingService struct {
	Profiles  repo.ProfileStore
	Documents repo.DocumentStore
	Cache     SnapshotCache
	Events    EventPublisher
	Index     ProfileIndexer
	Logger    *logrus.Logger
	Options   OnboardingOptions
}

func NewOnboardingService(profiles repo.ProfileStore, documents repo.DocumentStore, cache SnapshotCache, events EventPublisher, index ProfileIndexer, logger *logrus.Logger, opts OnboardingOptions) *OnboardingService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OnboardingService{
		Profiles:  profiles,
		Documents: documents,
		Cache:     cache,
		Events:    events,
		Index:     index,
		Logger:    logger,
		Options:   opts,
	}
}

type uploadedFile struct {
	path        string
	docType     entity.DocumentType
	displayName string
	contentType string
	size        int64
}

// Submit saves a billing onboarding form with up to three KYC files keyed by
// document type. The returned error is always an *entity.Error.
func (s *OnboardingService) Submit(ctx context.Context, userID string, form OnboardingForm, files map[entity.DocumentType]UploadFile) (*entity.BillingSnapshot, error) {
	metricSubmissions.Add(1)
	log := s.Logger.WithField("user_id", userID)

	snap, err := s.submit(ctx, log, userID, form, files)
	if err != nil {
		metricSubmissionFailures.Add(1)
		if e, ok := entity.AsError(err); ok {
			log.WithError(err).WithField("code", e.Code).Info("billing submission rejected")
		}
		return nil, err
	}
	log.Info("billing submission saved")
	return snap, nil
}

func (s *OnboardingService) submit(ctx context.Context, log *logrus.Entry, userID string, form OnboardingForm, files map[entity.DocumentType]UploadFile) (*entity.BillingSnapshot, error) {
	// 1. field validation, no I/O
	data, err := form.validate()
	if err != nil {
		return nil, err
	}
	uploads, err := prepareUploads(files, s.Options.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	entityType := data.identity.EntityType()

	// 2. entity type lock
	existing, err := s.Profiles.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, entity.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, entity.StoreError(fmt.Errorf("load profile: %w", err))
	}
	if existing != nil && existing.EntityType() != "" && existing.EntityType() != entityType {
		return nil, entity.ErrEntityTypeLocked.WithDetails(map[string]string{
			"entityType": string(existing.EntityType()),
		})
	}

	// 3. requirement resolution
	storedDocs, err := s.Profiles.ListDocuments(ctx, userID)
	if err != nil {
		return nil, entity.StoreError(fmt.Errorf("list documents: %w", err))
	}
	submitted := make([]entity.DocumentType, 0, len(uploads))
	for _, u := range uploads {
		submitted = append(submitted, u.docType)
	}
	if missing := policy.ResolveRequiredDocuments(entityType, storedDocs, submitted); len(missing) > 0 {
		details := make(map[string]string, len(missing))
		for _, m := range missing {
			details[m.FormField()] = "is required"
		}
		return nil, entity.MissingDocumentError(missing[0]).WithDetails(details)
	}

	// 4. upload phase
	sg := newSaga(log)
	uploaded, err := s.uploadAll(ctx, log, sg, userID, uploads, storedDocs)
	if err != nil {
		s.rollback(ctx, sg)
		return nil, err
	}

	// 5. persistence phase
	profile, account, docs, err := s.persist(ctx, userID, existing, data, uploaded)
	if err != nil {
		log.WithError(err).WithField("uploaded", len(uploaded)).Error("billing persistence failed, rolling back uploads")
		s.rollback(ctx, sg)
		return nil, err
	}

	s.afterCommit(ctx, log, profile, account, docs)
	return s.snapshotAfterCommit(ctx, log, profile, account, docs, storedDocs), nil
}

func (s *OnboardingService) uploadAll(ctx context.Context, log *logrus.Entry, sg *saga, userID string, uploads []preparedUpload, storedDocs []entity.BillingDocument) ([]uploadedFile, error) {
	taken := make(map[string]bool, len(storedDocs)+len(uploads))
	for _, d := range storedDocs {
		taken[d.StoragePath] = true
	}

	uploaded := make([]uploadedFile, 0, len(uploads))
	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			return nil, entity.ErrDocumentUploadFailed.Wrap(fmt.Errorf("upload %s: %w", u.docType, err)).
				WithDetails(map[string]string{"documentType": string(u.docType)})
		}

		key := storageKey(userID, u.docType, u.filename, taken)
		taken[key] = true

		if err := s.put(ctx, key, u); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"step":          "upload",
				"document_type": u.docType,
				"key":           key,
			}).Error("document upload failed")
			details := map[string]string{"documentType": string(u.docType)}
			if entity.IsRetryable(err) {
				details["retryable"] = "true"
			}
			return nil, entity.ErrDocumentUploadFailed.Wrap(fmt.Errorf("upload %s: %w", u.docType, err)).WithDetails(details)
		}

		sg.record("delete "+key, func(ctx context.Context) error {
			return s.Documents.Delete(ctx, key)
		})
		uploaded = append(uploaded, uploadedFile{
			path:        key,
			docType:     u.docType,
			displayName: u.displayName,
			contentType: u.contentType,
			size:        int64(len(u.data)),
		})
	}
	return uploaded, nil
}

func (s *OnboardingService) put(ctx context.Context, key string, u preparedUpload) error {
	if s.Options.StoreCallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Options.StoreCallTimeout)
		defer cancel()
	}
	return s.Documents.Put(ctx, key, u.data, u.contentType)
}

func (s *OnboardingService) persist(ctx context.Context, userID string, existing *entity.BillingProfile, data *onboardingData, uploaded []uploadedFile) (*entity.BillingProfile, *entity.BankAccount, []*entity.BillingDocument, error) {
	profile := &entity.BillingProfile{
		UserID:   userID,
		Identity: data.identity,
		Address:  data.address,
		Contact:  data.contact,
	}
	if existing == nil {
		if err := s.Profiles.CreateProfile(ctx, profile); err != nil {
			return nil, nil, nil, saveError("create profile", err)
		}
	} else {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
		if err := s.Profiles.UpdateProfile(ctx, profile); err != nil {
			return nil, nil, nil, saveError("update profile", err)
		}
	}

	// every successful submission adds a new account row
	account := policy.NewOnboardingAccount(userID, data.bank.BankName, entity.AccountType(data.bank.AccountType), data.bank.AccountNumber, data.bank.HolderName)
	if err := s.Profiles.CreateBankAccount(ctx, account); err != nil {
		return nil, nil, nil, saveError("create bank account", err)
	}

	docs := make([]*entity.BillingDocument, 0, len(uploaded))
	for _, u := range uploaded {
		docs = append(docs, &entity.BillingDocument{
			UserID:      userID,
			Type:        u.docType,
			StoragePath: u.path,
			DisplayName: u.displayName,
			ContentType: u.contentType,
			SizeBytes:   u.size,
		})
	}
	if len(docs) > 0 {
		if err := s.Profiles.CreateDocuments(ctx, docs...); err != nil {
			return nil, nil, nil, saveError("create documents", err)
		}
	}
	return profile, account, docs, nil
}

func saveError(step string, err error) error {
	details := map[string]string{"step": step}
	if entity.IsRetryable(err) {
		details["retryable"] = "true"
	}
	return entity.ErrSaveFailed.Wrap(fmt.Errorf("%s: %w", step, err)).WithDetails(details)
}

// rollback deletes everything this run uploaded. It runs on a context that
// survives cancellation of the request so an aborted client still gets its
// orphans cleaned up.
func (s *OnboardingService) rollback(ctx context.Context, sg *saga) {
	if sg.len() == 0 {
		return
	}
	metricRollbacks.Add(1)
	rctx := context.WithoutCancel(ctx)
	if s.Options.RollbackTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, s.Options.RollbackTimeout)
		defer cancel()
	}
	if failed := sg.compensate(rctx); failed > 0 {
		metricRollbackDeleteFailure.Add(int64(failed))
	}
}

// afterCommit runs the best-effort side effects of a saved submission.
func (s *OnboardingService) afterCommit(ctx context.Context, log *logrus.Entry, profile *entity.BillingProfile, account *entity.BankAccount, docs []*entity.BillingDocument) {
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, profile.UserID); err != nil {
			log.WithError(err).Warn("snapshot cache invalidation failed")
		}
	}
	if s.Index != nil {
		if err := s.Index.IndexProfile(ctx, profile); err != nil {
			log.WithError(err).Warn("billing profile indexing failed")
		}
	}
	if s.Events != nil {
		types := make([]entity.DocumentType, 0, len(docs))
		for _, d := range docs {
			types = append(types, d.Type)
		}
		ev := entity.BillingEvent{
			ID:                 uuid.NewString(),
			Type:               entity.EventOnboardingSubmitted,
			UserID:             profile.UserID,
			OccurredAt:         time.Now().UTC(),
			ContactEmail:       profile.Contact.Email,
			DisplayName:        profile.Identity.DisplayName(),
			AccountID:          account.ID,
			BankName:           account.BankName,
			AccountNumberLast4: account.AccountNumberLast4(),
			Documents:          types,
		}
		if err := s.Events.PublishJSON(ctx, ev); err != nil {
			log.WithError(err).WithField("event", ev.Type).Warn("billing event publish failed")
		}
	}
}

// snapshotAfterCommit reads the fresh state back. The submission is already
// saved at this point, so read failures fall back to what this run wrote.
func (s *OnboardingService) snapshotAfterCommit(ctx context.Context, log *logrus.Entry, profile *entity.BillingProfile, account *entity.BankAccount, docs []*entity.BillingDocument, storedDocs []entity.BillingDocument) *entity.BillingSnapshot {
	snap, err := s.load(ctx, profile)
	if err == nil {
		return snap
	}
	log.WithError(err).Warn("reading snapshot after save failed")

	all := append([]entity.BillingDocument{}, storedDocs...)
	for _, d := range docs {
		all = append(all, *d)
	}
	return buildSnapshot(profile, []entity.BankAccount{*account}, all)
}

// Snapshot returns the user's current billing settings.
func (s *OnboardingService) Snapshot(ctx context.Context, userID string) (*entity.BillingSnapshot, error) {
	log := s.Logger.WithField("user_id", userID)
	if s.Cache != nil {
		snap, ok, err := s.Cache.Get(ctx, userID)
		if err != nil {
			log.WithError(err).Warn("snapshot cache read failed")
		} else if ok {
			return snap, nil
		}
	}

	profile, err := s.Profiles.GetProfile(ctx, userID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, entity.ErrProfileNotFound
	}
	if err != nil {
		return nil, entity.StoreError(fmt.Errorf("load profile: %w", err))
	}
	snap, err := s.load(ctx, profile)
	if err != nil {
		return nil, entity.StoreError(err)
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, userID, snap); err != nil {
			log.WithError(err).Warn("snapshot cache write failed")
		}
	}
	return snap, nil
}

func (s *OnboardingService) load(ctx context.Context, profile *entity.BillingProfile) (*entity.BillingSnapshot, error) {
	accounts, err := s.Profiles.ListBankAccounts(ctx, profile.UserID)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	docs, err := s.Profiles.ListDocuments(ctx, profile.UserID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return buildSnapshot(profile, accounts, docs), nil
}

func buildSnapshot(profile *entity.BillingProfile, accounts []entity.BankAccount, docs []entity.BillingDocument) *entity.BillingSnapshot {
	if accounts == nil {
		accounts = []entity.BankAccount{}
	}
	if docs == nil {
		docs = []entity.BillingDocument{}
	}
	return &entity.BillingSnapshot{
		Profile:          profile,
		BankAccounts:     accounts,
		Documents:        docs,
		EntityTypeLocked: profile.EntityType() != "",
		MissingDocuments: policy.ResolveRequiredDocuments(profile.EntityType(), docs, nil),
	}
}
