// Package policy holds the pure billing rules: which KYC documents an
// organizer still owes and which bank account transitions are allowed.
package policy

import "github.com/oksasatya/organizer-billing/internal/domain/entity"

// RequiredDocuments lists the document types an entity type must provide,
// in upload order. The bank certificate is always required.
func RequiredDocuments(t entity.EntityType) []entity.DocumentType {
	switch t {
	case entity.EntityNatural:
		return []entity.DocumentType{entity.DocumentID, entity.DocumentBankCertificate}
	case entity.EntityLegal:
		return []entity.DocumentType{entity.DocumentRUT, entity.DocumentBankCertificate}
	default:
		return []entity.DocumentType{entity.DocumentBankCertificate}
	}
}

// ResolveRequiredDocuments returns the requirements that are neither already
// stored for the user nor submitted in the current request, in upload order.
// The result depends only on its arguments.
func ResolveRequiredDocuments(t entity.EntityType, existing []entity.BillingDocument, submitted []entity.DocumentType) []entity.DocumentType {
	have := make(map[entity.DocumentType]bool, len(existing)+len(submitted))
	for _, d := range existing {
		have[d.Type] = true
	}
	for _, s := range submitted {
		have[s] = true
	}

	missing := []entity.DocumentType{}
	for _, req := range RequiredDocuments(t) {
		if !have[req] {
			missing = append(missing, req)
		}
	}
	return missing
}
