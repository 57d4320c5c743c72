package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/organizer-billing/internal/application"
	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	handlers "github.com/oksasatya/organizer-billing/internal/interface/http"
	"github.com/oksasatya/organizer-billing/internal/interface/middleware"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/memory"
)

const testUser = "7d0c1c52-8f4e-4c7b-9d7a-3a7c2b1e5f10"

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type harness struct {
	router   *gin.Engine
	profiles *memory.BillingRepository
	docs     *memory.DocumentStore
}

func newHarness(t *testing.T, maxUpload int64) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	profiles := memory.NewBillingRepository()
	docs := memory.NewDocumentStore()
	opts := application.DefaultOnboardingOptions()
	opts.MaxUploadBytes = maxUpload
	onboarding := application.NewOnboardingService(profiles, docs, nil, nil, nil, logger, opts)
	accounts := application.NewBankAccountService(profiles, nil, nil, logger)
	h := handlers.NewBillingHandler(onboarding, accounts, logger, maxUpload)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CtxUserIDKey, testUser)
		c.Next()
	})
	r.POST("/billing-settings", h.Submit)
	r.GET("/billing-settings", h.Snapshot)
	r.POST("/billing-accounts/:id/activate", h.Activate)
	r.POST("/billing-accounts/:id/deactivate", h.Deactivate)
	r.POST("/billing-accounts/:id/preferred", h.SetPreferred)
	return &harness{router: r, profiles: profiles, docs: docs}
}

func (h *harness) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

type part struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, data any, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("data", string(raw)))
	}
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/billing-settings", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func naturalData() map[string]any {
	return map[string]any{
		"entityType": "natural",
		"naturalPersonInfo": map[string]any{
			"firstName":      "Ana",
			"lastName":       "Gomez",
			"documentType":   "CC",
			"documentNumber": "1020304050",
		},
		"fiscalAddress": map[string]any{"address": "Calle 10 # 5-20", "city": "Bogota", "department": "Cundinamarca"},
		"contactInfo":   map[string]any{"email": "ana@example.com", "phone": "+573001234567"},
		"bankInfo":      map[string]any{"bankName": "Bancolombia", "accountType": "savings", "accountNumber": "12345678901"},
	}
}

func TestSubmit_Natural(t *testing.T) {
	h := newHarness(t, 1<<20)

	w, env := h.do(t, multipartRequest(t, naturalData(),
		part{"id_document_file", "cedula.pdf", pdfBytes},
		part{"bank_certificate_file", "cert.png", pngBytes},
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, env.Success)

	var snap entity.BillingSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	require.NotNil(t, snap.Profile)
	assert.Equal(t, entity.EntityNatural, snap.Profile.EntityType())
	assert.True(t, snap.EntityTypeLocked)
	assert.Empty(t, snap.MissingDocuments)
	require.Len(t, snap.BankAccounts, 1)
	assert.Equal(t, entity.VerificationPending, snap.BankAccounts[0].Status)
	assert.Len(t, snap.Documents, 2)
	assert.Len(t, h.docs.Keys(), 2)
}

func TestSubmit_MissingIDDocument(t *testing.T) {
	h := newHarness(t, 1<<20)

	w, env := h.do(t, multipartRequest(t, naturalData(),
		part{"bank_certificate_file", "cert.png", pngBytes},
	))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, string(entity.CodeMissingIDDocument), env.Error.Code)
	assert.Empty(t, h.docs.Puts())
	assert.Zero(t, h.profiles.Calls(memory.OpCreateProfile))
}

func TestSubmit_MissingDataField(t *testing.T) {
	h := newHarness(t, 1<<20)

	w, env := h.do(t, multipartRequest(t, nil, part{"id_document_file", "cedula.pdf", pdfBytes}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(entity.CodeValidationFailed), env.Error.Code)
	assert.Equal(t, "is required", env.Error.Details["data"])
}

func TestSubmit_NotMultipart(t *testing.T) {
	h := newHarness(t, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/billing-settings", bytes.NewBufferString(`{"entityType":"natural"}`))
	req.Header.Set("Content-Type", "application/json")
	w, env := h.do(t, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(entity.CodeValidationFailed), env.Error.Code)
	assert.Contains(t, env.Error.Details, "payload")
}

func TestSubmit_OversizedFile(t *testing.T) {
	h := newHarness(t, 64)

	w, env := h.do(t, multipartRequest(t, naturalData(),
		part{"id_document_file", "cedula.pdf", append(append([]byte{}, pdfBytes...), bytes.Repeat([]byte("0"), 128)...)},
		part{"bank_certificate_file", "cert.png", pngBytes},
	))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(entity.CodeInvalidFile), env.Error.Code)
	assert.Empty(t, h.docs.Puts())
}

func TestSnapshot_NotFound(t *testing.T) {
	h := newHarness(t, 1<<20)

	w, env := h.do(t, httptest.NewRequest(http.MethodGet, "/billing-settings", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(entity.CodeProfileNotFound), env.Error.Code)
}

func TestAccountActions(t *testing.T) {
	h := newHarness(t, 1<<20)
	pending := h.profiles.PutBankAccount(entity.BankAccount{
		UserID: testUser, BankName: "Bancolombia", AccountType: entity.AccountSavings,
		AccountNumber: "12345678901", IsActive: true, Status: entity.VerificationPending,
	})
	verified := h.profiles.PutBankAccount(entity.BankAccount{
		UserID: testUser, BankName: "Davivienda", AccountType: entity.AccountChecking,
		AccountNumber: "00987654321", IsActive: true, Status: entity.VerificationVerified,
	})
	post := func(path string) *http.Request { return httptest.NewRequest(http.MethodPost, path, nil) }

	w, env := h.do(t, post("/billing-accounts/"+pending.ID+"/preferred"))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(entity.CodeCannotPreferUnverified), env.Error.Code)

	w, env = h.do(t, post("/billing-accounts/"+verified.ID+"/preferred"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got entity.BankAccount
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.True(t, got.IsPreferred)

	w, env = h.do(t, post("/billing-accounts/"+verified.ID+"/deactivate"))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(entity.CodeCannotDeactivatePreferred), env.Error.Code)

	w, _ = h.do(t, post("/billing-accounts/"+pending.ID+"/deactivate"))
	require.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(t, post("/billing-accounts/"+pending.ID+"/preferred"))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(entity.CodeCannotPreferInactive), env.Error.Code)

	w, _ = h.do(t, post("/billing-accounts/"+pending.ID+"/activate"))
	require.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(t, post("/billing-accounts/does-not-exist/activate"))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(entity.CodeBankAccountNotFound), env.Error.Code)
}

func TestAccountActions_StoreUnavailable(t *testing.T) {
	h := newHarness(t, 1<<20)
	a := h.profiles.PutBankAccount(entity.BankAccount{UserID: testUser, IsActive: true, Status: entity.VerificationVerified})
	h.profiles.FailOn(memory.OpSetPreferredBankAccount, entity.ErrStoreUnavailable)

	w, env := h.do(t, httptest.NewRequest(http.MethodPost, "/billing-accounts/"+a.ID+"/preferred", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, string(entity.CodeConnectionFailed), env.Error.Code)
}

func TestStatusFor(t *testing.T) {
	tests := map[entity.Code]int{
		entity.CodeValidationFailed:          http.StatusBadRequest,
		entity.CodeEntityTypeLocked:          http.StatusBadRequest,
		entity.CodeMissingRUT:                http.StatusBadRequest,
		entity.CodeInvalidFile:               http.StatusBadRequest,
		entity.CodeCannotDeactivatePreferred: http.StatusConflict,
		entity.CodeCannotPreferInactive:      http.StatusConflict,
		entity.CodeProfileNotFound:           http.StatusNotFound,
		entity.CodeBankAccountNotFound:       http.StatusNotFound,
		entity.CodeConnectionFailed:          http.StatusServiceUnavailable,
		entity.CodeSaveFailed:                http.StatusInternalServerError,
		entity.CodeDocumentUploadFailed:      http.StatusInternalServerError,
		entity.CodeStoreFailed:               http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, handlers.StatusFor(code), code)
	}
}
