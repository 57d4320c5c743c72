package entity

import (
	"errors"
	"strings"
)

// Store implementations wrap infrastructure failures with one of these so
// callers can tell transient conditions from deterministic refusals.
var (
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrStoreRejected    = errors.New("store rejected request")
)

// Code is a machine-readable error code surfaced to API clients.
type Code string

const (
	CodeValidationFailed          Code = "VALIDATION_FAILED"
	CodeEntityTypeRequired        Code = "ENTITY_TYPE_REQUIRED"
	CodeEntityTypeLocked          Code = "ENTITY_TYPE_LOCKED"
	CodeMissingIDDocument         Code = "MISSING_ID_DOCUMENT"
	CodeMissingRUT                Code = "MISSING_RUT"
	CodeMissingBankCertificate    Code = "MISSING_BANK_CERTIFICATE"
	CodeInvalidFile               Code = "INVALID_FILE"
	CodeDocumentUploadFailed      Code = "DOCUMENT_UPLOAD_FAILED"
	CodeSaveFailed                Code = "SAVE_FAILED"
	CodeStoreFailed               Code = "STORE_FAILED"
	CodeConnectionFailed          Code = "CONNECTION_FAILED"
	CodeProfileNotFound           Code = "PROFILE_NOT_FOUND"
	CodeBankAccountNotFound       Code = "BANK_ACCOUNT_NOT_FOUND"
	CodeCannotDeactivatePreferred Code = "CANNOT_DEACTIVATE_PREFERRED"
	CodeCannotPreferInactive      Code = "CANNOT_PREFER_INACTIVE"
	CodeCannotPreferUnverified    Code = "CANNOT_PREFER_UNVERIFIED"
)

// Error carries a code, a user-facing message and optional field details.
// Two errors are considered equal by errors.Is when their codes match.
type Error struct {
	Code    Code
	Message string
	Details map[string]string
	Err     error
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of e carrying err as its cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// WithDetails returns a copy of e with details merged in.
func (e *Error) WithDetails(details map[string]string) *Error {
	cp := *e
	cp.Details = make(map[string]string, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// AsError extracts the outermost *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

var (
	ErrValidationFailed          = NewError(CodeValidationFailed, "some fields are invalid")
	ErrEntityTypeRequired        = NewError(CodeEntityTypeRequired, "entity type is required")
	ErrEntityTypeLocked          = NewError(CodeEntityTypeLocked, "entity type cannot be changed, please contact support")
	ErrMissingIDDocument         = NewError(CodeMissingIDDocument, "identity document is required")
	ErrMissingRUT                = NewError(CodeMissingRUT, "RUT is required")
	ErrMissingBankCertificate    = NewError(CodeMissingBankCertificate, "bank certificate is required")
	ErrInvalidFile               = NewError(CodeInvalidFile, "uploaded file is not accepted")
	ErrDocumentUploadFailed      = NewError(CodeDocumentUploadFailed, "documents could not be uploaded")
	ErrSaveFailed                = NewError(CodeSaveFailed, "billing settings could not be saved")
	ErrStoreFailed               = NewError(CodeStoreFailed, "billing data could not be read")
	ErrConnectionFailed          = NewError(CodeConnectionFailed, "billing backend is unreachable, try again later")
	ErrProfileNotFound           = NewError(CodeProfileNotFound, "billing profile not found")
	ErrBankAccountNotFound       = NewError(CodeBankAccountNotFound, "bank account not found")
	ErrCannotDeactivatePreferred = NewError(CodeCannotDeactivatePreferred, "preferred account must be demoted before it can be deactivated")
	ErrCannotPreferInactive      = NewError(CodeCannotPreferInactive, "only active accounts can be preferred")
	ErrCannotPreferUnverified    = NewError(CodeCannotPreferUnverified, "only verified accounts can be preferred")
)

// MissingDocumentError returns the error reported for an unmet document requirement.
func MissingDocumentError(t DocumentType) *Error {
	switch t {
	case DocumentID:
		return ErrMissingIDDocument
	case DocumentRUT:
		return ErrMissingRUT
	default:
		return ErrMissingBankCertificate
	}
}

// StoreError classifies a failed read or row-scoped write.
func StoreError(err error) *Error {
	if errors.Is(err, ErrStoreUnavailable) {
		return ErrConnectionFailed.Wrap(err)
	}
	return ErrStoreFailed.Wrap(err)
}

// IsRetryable reports whether err was caused by a transient store condition.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
