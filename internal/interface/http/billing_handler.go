package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/organizer-billing/internal/application"
	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/internal/interface/middleware"
	"github.com/oksasatya/organizer-billing/pkg/response"
	"github.com/oksasatya/organizer-billing/pkg/validation"
)

// multipart overhead allowed on top of the three files
const formOverheadBytes = 1 << 20

type BillingHandler struct {
	Onboarding     *application.OnboardingService
	Accounts       *application.BankAccountService
	Logger         *logrus.Logger
	MaxUploadBytes int64
}

func NewBillingHandler(onboarding *application.OnboardingService, accounts *application.BankAccountService, logger *logrus.Logger, maxUploadBytes int64) *BillingHandler {
	return &BillingHandler{Onboarding: onboarding, Accounts: accounts, Logger: logger, MaxUploadBytes: maxUploadBytes}
}

// Submit handles POST /billing-settings: a `data` JSON field plus optional
// id_document_file, rut_file and bank_certificate_file parts.
func (h *BillingHandler) Submit(c *gin.Context) {
	limit := 3*h.MaxUploadBytes + formOverheadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	if err := c.Request.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, entity.ErrInvalidFile.WithDetails(map[string]string{"payload": "request body too large"}))
			return
		}
		h.fail(c, entity.ErrValidationFailed.WithDetails(map[string]string{"payload": "expected multipart/form-data"}))
		return
	}

	raw, ok := c.GetPostForm("data")
	if !ok {
		h.fail(c, entity.ErrValidationFailed.WithDetails(map[string]string{"data": "is required"}))
		return
	}
	var form application.OnboardingForm
	if err := json.Unmarshal([]byte(raw), &form); err != nil {
		h.fail(c, entity.ErrValidationFailed.WithDetails(validation.ToDetails(err)))
		return
	}

	files, err := h.readFiles(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	snap, err := h.Onboarding.Submit(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), form, files)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, snap, "billing settings saved", nil))
}

func (h *BillingHandler) readFiles(c *gin.Context) (map[entity.DocumentType]application.UploadFile, error) {
	files := map[entity.DocumentType]application.UploadFile{}
	for _, t := range entity.DocumentUploadOrder {
		fh, err := c.FormFile(t.FormField())
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, entity.ErrInvalidFile.WithDetails(map[string]string{t.FormField(): "could not read file"})
		}
		f, err := fh.Open()
		if err != nil {
			return nil, entity.ErrInvalidFile.WithDetails(map[string]string{t.FormField(): "could not read file"})
		}
		// one byte over the limit is enough for the size check to reject it
		data, err := io.ReadAll(io.LimitReader(f, h.MaxUploadBytes+1))
		_ = f.Close()
		if err != nil {
			return nil, entity.ErrInvalidFile.WithDetails(map[string]string{t.FormField(): "could not read file"})
		}
		files[t] = application.UploadFile{Filename: fh.Filename, Data: data}
	}
	return files, nil
}

// Snapshot handles GET /billing-settings.
func (h *BillingHandler) Snapshot(c *gin.Context) {
	snap, err := h.Onboarding.Snapshot(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, snap, "ok", nil))
}

func (h *BillingHandler) Activate(c *gin.Context) {
	h.accountAction(c, "bank account activated", h.Accounts.Activate)
}

func (h *BillingHandler) Deactivate(c *gin.Context) {
	h.accountAction(c, "bank account deactivated", h.Accounts.Deactivate)
}

func (h *BillingHandler) SetPreferred(c *gin.Context) {
	h.accountAction(c, "preferred bank account updated", h.Accounts.SetPreferred)
}

type accountOp func(ctx context.Context, userID, accountID string) (*entity.BankAccount, error)

func (h *BillingHandler) accountAction(c *gin.Context, message string, op accountOp) {
	a, err := op(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, a, message, nil))
}

func (h *BillingHandler) fail(c *gin.Context, err error) {
	e, ok := entity.AsError(err)
	if !ok {
		h.Logger.WithError(err).WithField("path", c.FullPath()).Error("unclassified billing error")
		response.JSON(c, response.Error[any](c, http.StatusInternalServerError, "internal error", response.ErrorBody{
			Code:    "INTERNAL_ERROR",
			Message: "internal error",
		}))
		return
	}
	status := StatusFor(e.Code)
	if status >= http.StatusInternalServerError {
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"path":    c.FullPath(),
			"code":    e.Code,
			"user_id": c.GetString(middleware.CtxUserIDKey),
		}).Error("billing request failed")
	}
	response.JSON(c, response.Error[any](c, status, e.Message, response.ErrorBody{
		Code:    string(e.Code),
		Message: e.Message,
		Details: e.Details,
	}))
}

// StatusFor maps an error code onto its HTTP status.
func StatusFor(code entity.Code) int {
	switch code {
	case entity.CodeValidationFailed, entity.CodeEntityTypeRequired, entity.CodeEntityTypeLocked,
		entity.CodeMissingIDDocument, entity.CodeMissingRUT, entity.CodeMissingBankCertificate,
		entity.CodeInvalidFile:
		return http.StatusBadRequest
	case entity.CodeCannotDeactivatePreferred, entity.CodeCannotPreferInactive, entity.CodeCannotPreferUnverified:
		return http.StatusConflict
	case entity.CodeProfileNotFound, entity.CodeBankAccountNotFound:
		return http.StatusNotFound
	case entity.CodeConnectionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
