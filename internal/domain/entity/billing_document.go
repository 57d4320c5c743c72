package entity

import "time"

type DocumentType string

const (
	DocumentID              DocumentType = "id_document"
	DocumentRUT             DocumentType = "rut"
	DocumentBankCertificate DocumentType = "bank_certificate"
)

// DocumentUploadOrder is the fixed order in which a submission's files are stored.
var DocumentUploadOrder = []DocumentType{DocumentID, DocumentRUT, DocumentBankCertificate}

func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentID, DocumentRUT, DocumentBankCertificate:
		return true
	default:
		return false
	}
}

// FormField is the multipart field carrying a file of this type.
func (t DocumentType) FormField() string { return string(t) + "_file" }

// BillingDocument references a stored KYC blob. A row only exists once
// its blob has been written to the document store.
type BillingDocument struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Type        DocumentType `json:"documentType"`
	StoragePath string       `json:"storagePath"`
	DisplayName string       `json:"displayName"`
	ContentType string       `json:"contentType"`
	SizeBytes   int64        `json:"sizeBytes"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// BillingSnapshot is what the billing settings screen renders.
type BillingSnapshot struct {
	Profile          *BillingProfile   `json:"profile"`
	BankAccounts     []BankAccount     `json:"bankAccounts"`
	Documents        []BillingDocument `json:"documents"`
	EntityTypeLocked bool              `json:"entityTypeLocked"`
	MissingDocuments []DocumentType    `json:"missingDocuments"`
}
