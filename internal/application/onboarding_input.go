package application

import (
	"strings"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/pkg/validation"
)

// OnboardingForm is the `data` part of a billing settings submission.
// Exactly one of NaturalPersonInfo and LegalEntityInfo is expected, matching EntityType.
type OnboardingForm struct {
	EntityType        string             `json:"entityType" binding:"required,oneof=natural legal"`
	NaturalPersonInfo *NaturalPersonForm `json:"naturalPersonInfo,omitempty" binding:"required_if=EntityType natural,excluded_with=LegalEntityInfo"`
	LegalEntityInfo   *LegalEntityForm   `json:"legalEntityInfo,omitempty" binding:"required_if=EntityType legal,excluded_with=NaturalPersonInfo"`
	FiscalAddress     AddressForm        `json:"fiscalAddress"`
	ContactInfo       ContactForm        `json:"contactInfo"`
	BankInfo          BankForm           `json:"bankInfo"`
}

type NaturalPersonForm struct {
	FirstName      string `json:"firstName" binding:"required,max=100"`
	LastName       string `json:"lastName" binding:"required,max=100"`
	DocumentType   string `json:"documentType" binding:"required,oneof=CC CE PPT"`
	DocumentNumber string `json:"documentNumber" binding:"required,iddoc"`
}

type LegalEntityForm struct {
	BusinessName        string `json:"businessName" binding:"required,max=200"`
	TaxID               string `json:"taxId" binding:"required,taxid"`
	LegalRepresentative string `json:"legalRepresentative" binding:"required,max=150"`
}

type AddressForm struct {
	Address    string `json:"address" binding:"required,max=200"`
	City       string `json:"city" binding:"required,max=100"`
	Department string `json:"department" binding:"required,max=100"`
	Country    string `json:"country" binding:"omitempty,iso3166_1_alpha2"`
}

type ContactForm struct {
	Email string `json:"email" binding:"required,email,max=254"`
	Phone string `json:"phone" binding:"required,phone"`
}

type BankForm struct {
	BankName      string `json:"bankName" binding:"required,max=100"`
	AccountType   string `json:"accountType" binding:"required,oneof=savings checking"`
	AccountNumber string `json:"accountNumber" binding:"required,acctnum"`
	HolderName    string `json:"holderName" binding:"omitempty,max=150"`
}

const defaultCountry = "CO"

// onboardingData is a validated form in domain terms.
type onboardingData struct {
	identity entity.LegalIdentity
	address  entity.FiscalAddress
	contact  entity.ContactInfo
	bank     BankForm
}

func (f *OnboardingForm) normalize() {
	f.EntityType = strings.ToLower(strings.TrimSpace(f.EntityType))
	if f.NaturalPersonInfo != nil {
		cp := *f.NaturalPersonInfo
		f.NaturalPersonInfo = &cp
	}
	if f.LegalEntityInfo != nil {
		cp := *f.LegalEntityInfo
		f.LegalEntityInfo = &cp
	}
	if n := f.NaturalPersonInfo; n != nil {
		n.FirstName = strings.TrimSpace(n.FirstName)
		n.LastName = strings.TrimSpace(n.LastName)
		n.DocumentType = strings.ToUpper(strings.TrimSpace(n.DocumentType))
		n.DocumentNumber = strings.TrimSpace(n.DocumentNumber)
	}
	if l := f.LegalEntityInfo; l != nil {
		l.BusinessName = strings.TrimSpace(l.BusinessName)
		l.TaxID = strings.TrimSpace(l.TaxID)
		l.LegalRepresentative = strings.TrimSpace(l.LegalRepresentative)
	}
	f.FiscalAddress.Address = strings.TrimSpace(f.FiscalAddress.Address)
	f.FiscalAddress.City = strings.TrimSpace(f.FiscalAddress.City)
	f.FiscalAddress.Department = strings.TrimSpace(f.FiscalAddress.Department)
	f.FiscalAddress.Country = strings.ToUpper(strings.TrimSpace(f.FiscalAddress.Country))
	f.ContactInfo.Email = strings.ToLower(strings.TrimSpace(f.ContactInfo.Email))
	f.ContactInfo.Phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(f.ContactInfo.Phone))
	f.BankInfo.BankName = strings.TrimSpace(f.BankInfo.BankName)
	f.BankInfo.AccountType = strings.ToLower(strings.TrimSpace(f.BankInfo.AccountType))
	f.BankInfo.AccountNumber = strings.TrimSpace(f.BankInfo.AccountNumber)
	f.BankInfo.HolderName = strings.TrimSpace(f.BankInfo.HolderName)
}

// validate checks every field at once and returns either the domain view of
// the form or an *entity.Error listing each violated field.
func (f OnboardingForm) validate() (*onboardingData, error) {
	f.normalize()
	if f.EntityType == "" {
		return nil, entity.ErrEntityTypeRequired
	}
	if err := validation.Struct(f); err != nil {
		return nil, entity.ErrValidationFailed.WithDetails(validation.ToDetails(err))
	}

	data := &onboardingData{
		address: entity.FiscalAddress{
			Address:    f.FiscalAddress.Address,
			City:       f.FiscalAddress.City,
			Department: f.FiscalAddress.Department,
			Country:    f.FiscalAddress.Country,
		},
		contact: entity.ContactInfo{Email: f.ContactInfo.Email, Phone: f.ContactInfo.Phone},
		bank:    f.BankInfo,
	}
	if data.address.Country == "" {
		data.address.Country = defaultCountry
	}

	switch entity.EntityType(f.EntityType) {
	case entity.EntityNatural:
		n := f.NaturalPersonInfo
		data.identity = entity.NaturalPerson{
			FirstName:      n.FirstName,
			LastName:       n.LastName,
			DocumentType:   n.DocumentType,
			DocumentNumber: n.DocumentNumber,
		}
	case entity.EntityLegal:
		l := f.LegalEntityInfo
		data.identity = entity.LegalEntity{
			BusinessName:        l.BusinessName,
			TaxID:               l.TaxID,
			LegalRepresentative: l.LegalRepresentative,
		}
	}
	return data, nil
}
