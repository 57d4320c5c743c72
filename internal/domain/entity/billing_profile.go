package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EntityType tells whether a billing profile belongs to a person or a company.
// It is write-once: after the first successful save it can never change.
type EntityType string

const (
	EntityNatural EntityType = "natural"
	EntityLegal   EntityType = "legal"
)

func (t EntityType) IsValid() bool {
	switch t {
	case EntityNatural, EntityLegal:
		return true
	default:
		return false
	}
}

// LegalIdentity is the entity-type specific part of a profile.
// Only NaturalPerson and LegalEntity implement it.
type LegalIdentity interface {
	EntityType() EntityType
	DisplayName() string
	IdentificationNumber() string
	legalIdentity()
}

// NaturalPerson identifies an individual organizer.
type NaturalPerson struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	DocumentType   string `json:"documentType"` // CC, CE, PPT
	DocumentNumber string `json:"documentNumber"`
}

func (NaturalPerson) EntityType() EntityType { return EntityNatural }

func (p NaturalPerson) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p NaturalPerson) IdentificationNumber() string { return p.DocumentNumber }

func (NaturalPerson) legalIdentity() {}

// LegalEntity identifies a registered business.
type LegalEntity struct {
	BusinessName        string `json:"businessName"`
	TaxID               string `json:"taxId"`
	LegalRepresentative string `json:"legalRepresentative"`
}

func (LegalEntity) EntityType() EntityType { return EntityLegal }

func (e LegalEntity) DisplayName() string { return e.BusinessName }

func (e LegalEntity) IdentificationNumber() string { return e.TaxID }

func (LegalEntity) legalIdentity() {}

type FiscalAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	Department string `json:"department"`
	Country    string `json:"country"`
}

type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// BillingProfile is the aggregate root of the onboarding flow, one per user.
type BillingProfile struct {
	ID        string
	UserID    string
	Identity  LegalIdentity
	Address   FiscalAddress
	Contact   ContactInfo
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntityType returns the profile's locked entity type, or "" when no identity is set.
func (p *BillingProfile) EntityType() EntityType {
	if p == nil || p.Identity == nil {
		return ""
	}
	return p.Identity.EntityType()
}

type billingProfileJSON struct {
	ID                string         `json:"id"`
	UserID            string         `json:"userId"`
	EntityType        EntityType     `json:"entityType"`
	NaturalPersonInfo *NaturalPerson `json:"naturalPersonInfo,omitempty"`
	LegalEntityInfo   *LegalEntity   `json:"legalEntityInfo,omitempty"`
	FiscalAddress     FiscalAddress  `json:"fiscalAddress"`
	ContactInfo       ContactInfo    `json:"contactInfo"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

func (p BillingProfile) MarshalJSON() ([]byte, error) {
	out := billingProfileJSON{
		ID:            p.ID,
		UserID:        p.UserID,
		FiscalAddress: p.Address,
		ContactInfo:   p.Contact,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	switch id := p.Identity.(type) {
	case NaturalPerson:
		out.EntityType = EntityNatural
		out.NaturalPersonInfo = &id
	case LegalEntity:
		out.EntityType = EntityLegal
		out.LegalEntityInfo = &id
	}
	return json.Marshal(out)
}

func (p *BillingProfile) UnmarshalJSON(b []byte) error {
	var in billingProfileJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*p = BillingProfile{
		ID:        in.ID,
		UserID:    in.UserID,
		Address:   in.FiscalAddress,
		Contact:   in.ContactInfo,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
	switch in.EntityType {
	case EntityNatural:
		if in.NaturalPersonInfo == nil {
			return fmt.Errorf("profile %s: natural entity without naturalPersonInfo", in.ID)
		}
		p.Identity = *in.NaturalPersonInfo
	case EntityLegal:
		if in.LegalEntityInfo == nil {
			return fmt.Errorf("profile %s: legal entity without legalEntityInfo", in.ID)
		}
		p.Identity = *in.LegalEntityInfo
	case "":
	default:
		return fmt.Errorf("profile %s: unknown entity type %q", in.ID, in.EntityType)
	}
	return nil
}
