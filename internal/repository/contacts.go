package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hivecrm/contactbook/internal/domain"
)

var _ ContactRepository = (*PostgresContactRepo)(nil)

const contactColumns = `id, owner_id, first_name, last_name, email, phone_number, birthday, COALESCE(additional_info, ''), created_at, updated_at`

// PostgresContactRepo implements ContactRepository on a pgx pool.
type PostgresContactRepo struct {
	db *pgxpool.Pool
}

func NewPostgresContactRepo(pool *pgxpool.Pool) *PostgresContactRepo {
	return &PostgresContactRepo{db: pool}
}

const insertContactSQL = `INSERT INTO contacts (id, owner_id, first_name, last_name, email, phone_number, birthday, additional_info)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
RETURNING created_at, updated_at`

func (r *PostgresContactRepo) Create(ctx context.Context, contact domain.Contact) (domain.Contact, error) {
	row := r.db.QueryRow(ctx, insertContactSQL,
		contact.ID,
		contact.OwnerID,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.PhoneNumber,
		contact.Birthday,
		contact.AdditionalInfo,
	)
	if err := row.Scan(&contact.CreatedAt, &contact.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Contact{}, domain.ErrEmailExists
		}
		return domain.Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return contact, nil
}

func (r *PostgresContactRepo) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE owner_id = $1 ORDER BY id LIMIT $2 OFFSET $3`
	return r.list(ctx, query, ownerID, limit, offset)
}

func (r *PostgresContactRepo) ListAll(ctx context.Context, limit, offset int) ([]domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts ORDER BY id LIMIT $1 OFFSET $2`
	return r.list(ctx, query, limit, offset)
}

// Search matches a case-insensitive substring against first name, last name,
// and email, scoped to the owner.
func (r *PostgresContactRepo) Search(ctx context.Context, ownerID int64, query string) ([]domain.Contact, error) {
	const q = `SELECT ` + contactColumns + ` FROM contacts
WHERE owner_id = $1 AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
ORDER BY id`
	return r.list(ctx, q, ownerID, "%"+query+"%")
}

func (r *PostgresContactRepo) GetByID(ctx context.Context, contactID int64) (domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	return scanContact(r.db.QueryRow(ctx, query, contactID))
}

func (r *PostgresContactRepo) Delete(ctx context.Context, contactID int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, contactID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpcomingBirthdays returns the owner's contacts whose birthday falls within
// the next `days` days, matching on day-of-year so the birth year is ignored.
// When the window crosses the year boundary the predicate flips from BETWEEN
// to an OR over the two partial ranges; both ends stay inclusive.
func (r *PostgresContactRepo) UpcomingBirthdays(ctx context.Context, ownerID int64, now time.Time, days int) ([]domain.Contact, error) {
	from, to, wraps := BirthdayWindow(now, days)

	if wraps {
		const q = `SELECT ` + contactColumns + ` FROM contacts
WHERE owner_id = $1 AND (EXTRACT(DOY FROM birthday)::int >= $2 OR EXTRACT(DOY FROM birthday)::int <= $3)
ORDER BY id`
		return r.list(ctx, q, ownerID, from, to)
	}

	const q = `SELECT ` + contactColumns + ` FROM contacts
WHERE owner_id = $1 AND EXTRACT(DOY FROM birthday)::int BETWEEN $2 AND $3
ORDER BY id`
	return r.list(ctx, q, ownerID, from, to)
}

// BirthdayWindow computes the inclusive day-of-year range covered by now and
// the following `days` days. wraps reports whether the range crosses the year
// boundary.
func BirthdayWindow(now time.Time, days int) (from, to int, wraps bool) {
	from = now.YearDay()
	to = now.AddDate(0, 0, days).YearDay()
	return from, to, from > to
}

// Find resolves a tagged contact reference within one owner's list.
func (r *PostgresContactRepo) Find(ctx context.Context, ownerID int64, ref domain.ContactRef) (domain.Contact, error) {
	query, args := findQuery(ownerID, ref)
	return scanContact(r.db.QueryRow(ctx, query, args...))
}

// Update rewrites a contact's mutable fields. The lookup, the email
// precheck, and the write happen inside one transaction. The precheck gives
// an early conflict answer; the UNIQUE index on email is what enforces it,
// so a violation raised by the write itself maps to the same error.
func (r *PostgresContactRepo) Update(ctx context.Context, ownerID int64, ref domain.ContactRef, update domain.Contact) (domain.Contact, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Contact{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args := findQuery(ownerID, ref)
	current, err := scanContact(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return domain.Contact{}, err
	}

	if update.Email != "" && update.Email != current.Email {
		var existingID int64
		err := tx.QueryRow(ctx, `SELECT id FROM contacts WHERE email = $1 AND id <> $2`, update.Email, current.ID).Scan(&existingID)
		switch {
		case err == nil:
			return domain.Contact{}, domain.ErrEmailExists
		case !errors.Is(err, pgx.ErrNoRows):
			return domain.Contact{}, fmt.Errorf("check contact email: %w", err)
		}
	}

	const updateSQL = `UPDATE contacts
SET first_name = $2, last_name = $3, email = $4, phone_number = $5, birthday = $6, additional_info = NULLIF($7, ''), updated_at = now()
WHERE id = $1
RETURNING ` + contactColumns

	updated, err := scanContact(tx.QueryRow(ctx, updateSQL,
		current.ID,
		update.FirstName,
		update.LastName,
		update.Email,
		update.PhoneNumber,
		update.Birthday,
		update.AdditionalInfo,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Contact{}, domain.ErrEmailExists
		}
		return domain.Contact{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Contact{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

func findQuery(ownerID int64, ref domain.ContactRef) (string, []any) {
	base := `SELECT ` + contactColumns + ` FROM contacts WHERE owner_id = $1 AND `
	switch ref.Kind {
	case domain.LookupByID:
		return base + `id = $2`, []any{ownerID, ref.ID}
	case domain.LookupByEmail:
		return base + `email = $2`, []any{ownerID, ref.Email}
	case domain.LookupByFullName:
		return base + `first_name = $2 AND last_name = $3`, []any{ownerID, ref.FirstName, ref.LastName}
	default:
		return base + `first_name = $2`, []any{ownerID, ref.FirstName}
	}
}

func (r *PostgresContactRepo) list(ctx context.Context, query string, args ...any) ([]domain.Contact, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

func scanContact(row pgx.Row) (domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.PhoneNumber,
		&c.Birthday,
		&c.AdditionalInfo,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contact{}, domain.ErrNotFound
		}
		return domain.Contact{}, fmt.Errorf("scan contact: %w", err)
	}
	return c, nil
}
