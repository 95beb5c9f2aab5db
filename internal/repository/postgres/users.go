package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (username, email, password_hash, role, avatar)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, username, email, password_hash, role, avatar, confirmed
`

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	role := arg.Role
	if role == "" {
		role = models.RoleUser
	}

	rows, _ := r.DB.Query(ctx, createUser, arg.Username, arg.Email, arg.HashedPassword, role, arg.Avatar)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			// The unique indexes are the backstop behind the service-level
			// pre-check, tell which of them fired
			if strings.Contains(pgErr.ConstraintName, "email") {
				return user, apperrors.ErrEmailAlreadyExists
			}
			return user, apperrors.ErrUserAlreadyExists
		}
		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, username, email, password_hash, role, avatar, confirmed
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByUsername = `-- name: GetUserByUsername
SELECT id, created_at, username, email, password_hash, role, avatar, confirmed
FROM users
WHERE username = $1
`

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByUsername, username)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, username, email, password_hash, role, avatar, confirmed
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

const confirmEmail = `-- name: ConfirmEmail
UPDATE users
SET confirmed = TRUE
WHERE email = $1
RETURNING id
`

func (r *UserRepo) ConfirmEmail(ctx context.Context, email string) error {
	rows, _ := r.DB.Query(ctx, confirmEmail, email)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const updateAvatar = `-- name: UpdateAvatar
UPDATE users
SET avatar = $2
WHERE email = $1
RETURNING id, created_at, username, email, password_hash, role, avatar, confirmed
`

func (r *UserRepo) UpdateAvatar(ctx context.Context, email string, url string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateAvatar, email, url)
	return collectUser(rows)
}

const setPasswordHash = `-- name: SetPasswordHash
UPDATE users
SET password_hash = $2
WHERE email = $1
RETURNING id
`

func (r *UserRepo) SetPasswordHash(ctx context.Context, email string, hash string) error {
	rows, _ := r.DB.Query(ctx, setPasswordHash, email, hash)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.HashedPassword, &u.Role, &u.Avatar, &u.Confirmed)
	return u, err
}
