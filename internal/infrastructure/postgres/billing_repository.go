package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/internal/domain/policy"
	"github.com/oksasatya/organizer-billing/internal/domain/repository"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	profileColumns = `id::text, user_id, entity_type, first_name, last_name, document_type, document_number,
		business_name, tax_id, legal_representative, address, city, department, country, email, phone,
		created_at, updated_at`
	accountColumns = `id::text, user_id, bank_name, account_type, account_number, holder_name,
		is_active, is_preferred, status, created_at, updated_at`
	documentColumns = `id::text, user_id, document_type, storage_path, display_name, content_type, size_bytes, created_at`
)

// BillingRepository is the pgx implementation of repository.ProfileStore.
type BillingRepository struct {
	pool *pgxpool.Pool
}

func NewBillingRepository(pool *pgxpool.Pool) *BillingRepository {
	return &BillingRepository{pool: pool}
}

var _ repository.ProfileStore = (*BillingRepository)(nil)

// classify maps driver errors onto the store sentinels. Connection, resource
// and serialization failures are transient; other server errors are not.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, class := range []string{"08", "40", "53", "57"} {
			if strings.HasPrefix(pgErr.Code, class) {
				return fmt.Errorf("%w: %w", entity.ErrStoreUnavailable, err)
			}
		}
		return fmt.Errorf("%w: %w", entity.ErrStoreRejected, err)
	}
	return fmt.Errorf("%w: %w", entity.ErrStoreUnavailable, err)
}

func (r *BillingRepository) GetProfile(ctx context.Context, userID string) (*entity.BillingProfile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM billing_profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

func (r *BillingRepository) CreateProfile(ctx context.Context, p *entity.BillingProfile) error {
	query, args, err := psql.Insert("billing_profiles").
		SetMap(profileValues(p)).
		Suffix("RETURNING id::text, created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}
	return classify(r.pool.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt))
}

// UpdateProfile overwrites the profile of p.UserID. The entity type is part
// of the match, so a row of the other type is never touched.
func (r *BillingRepository) UpdateProfile(ctx context.Context, p *entity.BillingProfile) error {
	values := profileValues(p)
	delete(values, "user_id")
	values["updated_at"] = sq.Expr("now()")

	query, args, err := psql.Update("billing_profiles").
		SetMap(values).
		Where(sq.Eq{"user_id": p.UserID, "entity_type": string(p.EntityType())}).
		Suffix("RETURNING id::text, created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.ErrEntityTypeLocked
	}
	return classify(err)
}

func profileValues(p *entity.BillingProfile) map[string]any {
	values := map[string]any{
		"user_id":              p.UserID,
		"entity_type":          string(p.EntityType()),
		"first_name":           nil,
		"last_name":            nil,
		"document_type":        nil,
		"document_number":      nil,
		"business_name":        nil,
		"tax_id":               nil,
		"legal_representative": nil,
		"address":              p.Address.Address,
		"city":                 p.Address.City,
		"department":           p.Address.Department,
		"country":              p.Address.Country,
		"email":                p.Contact.Email,
		"phone":                p.Contact.Phone,
	}
	switch id := p.Identity.(type) {
	case entity.NaturalPerson:
		values["first_name"] = id.FirstName
		values["last_name"] = id.LastName
		values["document_type"] = id.DocumentType
		values["document_number"] = id.DocumentNumber
	case entity.LegalEntity:
		values["business_name"] = id.BusinessName
		values["tax_id"] = id.TaxID
		values["legal_representative"] = id.LegalRepresentative
	}
	return values
}

func scanProfile(row pgx.Row) (*entity.BillingProfile, error) {
	var (
		p                                       entity.BillingProfile
		entityType                              string
		firstName, lastName, docType, docNumber *string
		businessName, taxID, legalRep           *string
	)
	err := row.Scan(
		&p.ID, &p.UserID, &entityType,
		&firstName, &lastName, &docType, &docNumber,
		&businessName, &taxID, &legalRep,
		&p.Address.Address, &p.Address.City, &p.Address.Department, &p.Address.Country,
		&p.Contact.Email, &p.Contact.Phone,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	switch entity.EntityType(entityType) {
	case entity.EntityNatural:
		p.Identity = entity.NaturalPerson{
			FirstName:      deref(firstName),
			LastName:       deref(lastName),
			DocumentType:   deref(docType),
			DocumentNumber: deref(docNumber),
		}
	case entity.EntityLegal:
		p.Identity = entity.LegalEntity{
			BusinessName:        deref(businessName),
			TaxID:               deref(taxID),
			LegalRepresentative: deref(legalRep),
		}
	default:
		return nil, fmt.Errorf("profile %s: unknown entity type %q", p.ID, entityType)
	}
	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *BillingRepository) ListBankAccounts(ctx context.Context, userID string) ([]entity.BankAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []entity.BankAccount{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, *a)
	}
	return out, classify(rows.Err())
}

func (r *BillingRepository) GetBankAccount(ctx context.Context, accountID string) (*entity.BankAccount, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, entity.ErrNotFound
	}
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE id = $1`, accountID))
	if err != nil {
		return nil, classify(err)
	}
	return a, nil
}

func (r *BillingRepository) CreateBankAccount(ctx context.Context, a *entity.BankAccount) error {
	query, args, err := psql.Insert("bank_accounts").
		Columns("user_id", "bank_name", "account_type", "account_number", "holder_name", "is_active", "is_preferred", "status").
		Values(a.UserID, a.BankName, string(a.AccountType), a.AccountNumber, a.HolderName, a.IsActive, a.IsPreferred, string(a.Status)).
		Suffix("RETURNING id::text, created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}
	return classify(r.pool.QueryRow(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt))
}

// SetBankAccountActive flips is_active. Deactivation only matches rows that
// are not preferred, so a concurrent promotion cannot be undone by it.
func (r *BillingRepository) SetBankAccountActive(ctx context.Context, accountID string, active bool) (*entity.BankAccount, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, entity.ErrNotFound
	}
	where := sq.And{sq.Eq{"id": accountID}}
	if !active {
		where = append(where, sq.Eq{"is_preferred": false})
	}
	query, args, err := psql.Update("bank_accounts").
		Set("is_active", active).
		Set("updated_at", sq.Expr("now()")).
		Where(where).
		Suffix("RETURNING " + accountColumns).
		ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) && !active {
		cur, getErr := r.GetBankAccount(ctx, accountID)
		if getErr != nil {
			return nil, getErr
		}
		if err := policy.CanDeactivate(*cur); err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, classify(err)
	}
	return a, nil
}

// SetPreferredBankAccount locks every account of the user, re-checks the
// target and swaps the preferred flag inside one transaction.
func (r *BillingRepository) SetPreferredBankAccount(ctx context.Context, userID, accountID string) (*entity.BankAccount, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		return nil, classify(err)
	}
	var target *entity.BankAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			rows.Close()
			return nil, classify(err)
		}
		if a.ID == accountID {
			target = a
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	if target == nil {
		return nil, entity.ErrNotFound
	}
	if err := policy.CanPrefer(*target); err != nil {
		return nil, err
	}

	demote, args, err := psql.Update("bank_accounts").
		Set("is_preferred", false).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"user_id": userID, "is_preferred": true}).
		Where(sq.NotEq{"id": accountID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, demote, args...); err != nil {
		return nil, classify(err)
	}

	promote, args, err := psql.Update("bank_accounts").
		Set("is_preferred", true).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": accountID}).
		Suffix("RETURNING " + accountColumns).
		ToSql()
	if err != nil {
		return nil, err
	}
	updated, err := scanAccount(tx.QueryRow(ctx, promote, args...))
	if err != nil {
		return nil, classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

// SetVerificationStatus clears is_preferred in the same statement when the
// account stops being verified.
func (r *BillingRepository) SetVerificationStatus(ctx context.Context, accountID string, status entity.VerificationStatus) (*entity.BankAccount, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, entity.ErrNotFound
	}
	query, args, err := psql.Update("bank_accounts").
		Set("status", string(status)).
		Set("is_preferred", sq.Expr("is_preferred AND ?", policy.KeepsPreference(status))).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": accountID}).
		Suffix("RETURNING " + accountColumns).
		ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, classify(err)
	}
	return a, nil
}

func scanAccount(row pgx.Row) (*entity.BankAccount, error) {
	var (
		a                   entity.BankAccount
		accountType, status string
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.BankName, &accountType, &a.AccountNumber, &a.HolderName,
		&a.IsActive, &a.IsPreferred, &status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.AccountType = entity.AccountType(accountType)
	a.Status = entity.VerificationStatus(status)
	return &a, nil
}

func (r *BillingRepository) ListDocuments(ctx context.Context, userID string) ([]entity.BillingDocument, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+documentColumns+` FROM billing_documents WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []entity.BillingDocument{}
	for rows.Next() {
		var (
			d       entity.BillingDocument
			docType string
		)
		if err := rows.Scan(&d.ID, &d.UserID, &docType, &d.StoragePath, &d.DisplayName, &d.ContentType, &d.SizeBytes, &d.CreatedAt); err != nil {
			return nil, classify(err)
		}
		d.Type = entity.DocumentType(docType)
		out = append(out, d)
	}
	return out, classify(rows.Err())
}

// CreateDocuments inserts every row or none.
func (r *BillingRepository) CreateDocuments(ctx context.Context, docs ...*entity.BillingDocument) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, d := range docs {
		query, args, err := psql.Insert("billing_documents").
			Columns("user_id", "document_type", "storage_path", "display_name", "content_type", "size_bytes").
			Values(d.UserID, string(d.Type), d.StoragePath, d.DisplayName, d.ContentType, d.SizeBytes).
			Suffix("RETURNING id::text, created_at").
			ToSql()
		if err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, query, args...).Scan(&d.ID, &d.CreatedAt); err != nil {
			return classify(err)
		}
	}
	return classify(tx.Commit(ctx))
}
