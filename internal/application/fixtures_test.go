package application_test

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/organizer-billing/internal/application"
	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	repo "github.com/oksasatya/organizer-billing/internal/domain/repository"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/memory"
)

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func naturalForm() application.OnboardingForm {
	return application.OnboardingForm{
		EntityType: "natural",
		NaturalPersonInfo: &application.NaturalPersonForm{
			FirstName:      "Ana",
			LastName:       "Gomez",
			DocumentType:   "CC",
			DocumentNumber: "1020304050",
		},
		FiscalAddress: application.AddressForm{Address: "Calle 10 # 5-20", City: "Bogota", Department: "Cundinamarca"},
		ContactInfo:   application.ContactForm{Email: "ana@example.com", Phone: "+573001234567"},
		BankInfo:      application.BankForm{BankName: "Bancolombia", AccountType: "savings", AccountNumber: "12345678901"},
	}
}

func legalForm() application.OnboardingForm {
	return application.OnboardingForm{
		EntityType: "legal",
		LegalEntityInfo: &application.LegalEntityForm{
			BusinessName:        "Acme SAS",
			TaxID:               "900123456-7",
			LegalRepresentative: "Carlos Ruiz",
		},
		FiscalAddress: application.AddressForm{Address: "Carrera 7 # 71-21", City: "Bogota", Department: "Cundinamarca", Country: "co"},
		ContactInfo:   application.ContactForm{Email: "billing@acme.example", Phone: "6017001234"},
		BankInfo:      application.BankForm{BankName: "Davivienda", AccountType: "checking", AccountNumber: "00987654321", HolderName: "Acme SAS"},
	}
}

func files(types ...entity.DocumentType) map[entity.DocumentType]application.UploadFile {
	names := map[entity.DocumentType]string{
		entity.DocumentID:              "cedula.pdf",
		entity.DocumentRUT:             "rut.pdf",
		entity.DocumentBankCertificate: "cert.png",
	}
	out := make(map[entity.DocumentType]application.UploadFile, len(types))
	for _, t := range types {
		data := pdfBytes
		if t == entity.DocumentBankCertificate {
			data = pngBytes
		}
		out[t] = application.UploadFile{Filename: names[t], Data: data}
	}
	return out
}

func newOnboarding(t *testing.T, profiles repo.ProfileStore, docs repo.DocumentStore) *application.OnboardingService {
	t.Helper()
	return application.NewOnboardingService(profiles, docs, nil, nil, nil, quietLogger(), application.DefaultOnboardingOptions())
}

func newMemory() (*memory.BillingRepository, *memory.DocumentStore) {
	return memory.NewBillingRepository(), memory.NewDocumentStore()
}
