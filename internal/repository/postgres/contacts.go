package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/repository"
)

type ContactRepo struct {
	DB DBTX
}

const createContact = `-- name: CreateContact
INSERT INTO contacts (user_id, first_name, last_name, email, phone, birthday, note)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, first_name, last_name, email, phone, birthday, note, created_at, updated_at
`

func (r *ContactRepo) CreateContact(ctx context.Context, userID int64, arg repository.ContactParams) (models.Contact, error) {
	rows, _ := r.DB.Query(ctx, createContact,
		userID, arg.FirstName, arg.LastName, arg.Email, arg.Phone, arg.Birthday, arg.Note)
	contact, err := pgx.CollectOneRow(rows, rowToContact)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return contact, apperrors.ErrContactAlreadyExists
		}
		return contact, fmt.Errorf("db error: %w", err)
	}

	return contact, nil
}

const getContact = `-- name: GetContact
SELECT id, user_id, first_name, last_name, email, phone, birthday, note, created_at, updated_at
FROM contacts
WHERE id = $1 AND user_id = $2
`

func (r *ContactRepo) GetContact(ctx context.Context, userID int64, contactID int64) (models.Contact, error) {
	rows, _ := r.DB.Query(ctx, getContact, contactID, userID)
	return collectContact(rows)
}

const listContacts = `-- name: ListContacts
SELECT id, user_id, first_name, last_name, email, phone, birthday, note, created_at, updated_at
FROM contacts
WHERE user_id = $1
  AND ($2 = '' OR first_name ILIKE '%' || $2 || '%'
               OR last_name  ILIKE '%' || $2 || '%'
               OR email      ILIKE '%' || $2 || '%'
               OR phone      ILIKE '%' || $2 || '%')
ORDER BY id
LIMIT $3 OFFSET $4
`

func (r *ContactRepo) ListContacts(ctx context.Context, arg repository.ListContactsParams) ([]models.Contact, error) {
	limit := arg.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, _ := r.DB.Query(ctx, listContacts, arg.UserID, arg.Search, limit, arg.Offset)
	contacts, err := pgx.CollectRows(rows, rowToContact)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contacts, nil
}

const updateContact = `-- name: UpdateContact
UPDATE contacts
SET first_name = $3,
    last_name  = $4,
    email      = $5,
    phone      = $6,
    birthday   = $7,
    note       = $8,
    updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING id, user_id, first_name, last_name, email, phone, birthday, note, created_at, updated_at
`

func (r *ContactRepo) UpdateContact(ctx context.Context, userID int64, contactID int64, arg repository.ContactParams) (models.Contact, error) {
	rows, _ := r.DB.Query(ctx, updateContact,
		contactID, userID, arg.FirstName, arg.LastName, arg.Email, arg.Phone, arg.Birthday, arg.Note)
	return collectContact(rows)
}

const deleteContact = `-- name: DeleteContact
DELETE FROM contacts
WHERE id = $1 AND user_id = $2
`

func (r *ContactRepo) DeleteContact(ctx context.Context, userID int64, contactID int64) error {
	tag, err := r.DB.Exec(ctx, deleteContact, contactID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrContactNotFound)
	}

	return nil
}

const upcomingBirthdays = `-- name: UpcomingBirthdays
SELECT id, user_id, first_name, last_name, email, phone, birthday, note, created_at, updated_at
FROM contacts
WHERE user_id = $1
  AND to_char(birthday, 'MMDD') IN (
      SELECT to_char($2::date + i, 'MMDD') FROM generate_series(0, $3::int) AS i
  )
ORDER BY to_char(birthday, 'MMDD')
`

// UpcomingBirthdays compares month/day only, so the year wrap around
// New Year's Eve is handled by the generated day list
func (r *ContactRepo) UpcomingBirthdays(ctx context.Context, userID int64, from time.Time, daysAhead int) ([]models.Contact, error) {
	rows, _ := r.DB.Query(ctx, upcomingBirthdays, userID, from, daysAhead)
	contacts, err := pgx.CollectRows(rows, rowToContact)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contacts, nil
}

func collectContact(rows pgx.Rows) (models.Contact, error) {
	contact, err := pgx.CollectOneRow(rows, rowToContact)

	switch {
	case err == nil:
		return contact, nil
	case errors.Is(err, pgx.ErrNoRows):
		return contact, fmt.Errorf("repo error: %w", apperrors.ErrContactNotFound)
	default:
		return contact, fmt.Errorf("db error: %w", err)
	}
}

func rowToContact(row pgx.CollectableRow) (models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Birthday, &c.Note, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
