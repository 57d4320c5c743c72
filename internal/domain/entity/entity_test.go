package entity_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
)

func TestError_IsMatchesByCode(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("create profile: %w", entity.ErrStoreUnavailable)
	err := fmt.Errorf("persist: %w", entity.ErrSaveFailed.Wrap(cause).WithDetails(map[string]string{"step": "profile"}))

	require.ErrorIs(t, err, entity.ErrSaveFailed)
	require.ErrorIs(t, err, entity.ErrStoreUnavailable)
	require.NotErrorIs(t, err, entity.ErrDocumentUploadFailed)
	require.True(t, entity.IsRetryable(err))

	e, ok := entity.AsError(err)
	require.True(t, ok)
	require.Equal(t, entity.CodeSaveFailed, e.Code)
	require.Equal(t, "profile", e.Details["step"])

	// the shared sentinel must not be mutated by Wrap/WithDetails
	require.Nil(t, entity.ErrSaveFailed.Err)
	require.Nil(t, entity.ErrSaveFailed.Details)
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, entity.StoreError(entity.ErrStoreUnavailable), entity.ErrConnectionFailed)
	require.ErrorIs(t, entity.StoreError(entity.ErrStoreRejected), entity.ErrStoreFailed)
	require.ErrorIs(t, entity.StoreError(errors.New("boom")), entity.ErrStoreFailed)
}

func TestMissingDocumentError(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, entity.MissingDocumentError(entity.DocumentID), entity.ErrMissingIDDocument)
	require.ErrorIs(t, entity.MissingDocumentError(entity.DocumentRUT), entity.ErrMissingRUT)
	require.ErrorIs(t, entity.MissingDocumentError(entity.DocumentBankCertificate), entity.ErrMissingBankCertificate)
}

func TestBillingProfile_JSONKeepsIdentityVariant(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, identity := range []entity.LegalIdentity{
		entity.NaturalPerson{FirstName: "Ana", LastName: "Gómez", DocumentType: "CC", DocumentNumber: "1020304050"},
		entity.LegalEntity{BusinessName: "Eventos SAS", TaxID: "900123456-7", LegalRepresentative: "Luis Pardo"},
	} {
		in := entity.BillingProfile{
			ID:        "p1",
			UserID:    "u1",
			Identity:  identity,
			Address:   entity.FiscalAddress{Address: "Calle 1", City: "Bogotá", Department: "Cundinamarca", Country: "CO"},
			Contact:   entity.ContactInfo{Email: "a@b.co", Phone: "+573001234567"},
			CreatedAt: now,
			UpdatedAt: now,
		}
		b, err := json.Marshal(in)
		require.NoError(t, err)
		require.Contains(t, string(b), `"entityType":"`+string(identity.EntityType())+`"`)

		var out entity.BillingProfile
		require.NoError(t, json.Unmarshal(b, &out))
		require.Equal(t, in, out)
	}
}

func TestBillingProfile_UnmarshalRejectsMismatchedVariant(t *testing.T) {
	t.Parallel()

	var p entity.BillingProfile
	err := json.Unmarshal([]byte(`{"id":"p1","entityType":"legal","naturalPersonInfo":{"firstName":"x"}}`), &p)
	require.Error(t, err)
}
