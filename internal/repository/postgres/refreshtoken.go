package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/repository"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveToken
INSERT INTO refresh_tokens (user_id, token_hash, expires_at, ip_address, user_agent)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, token_hash, created_at, expires_at, revoked_at, ip_address, user_agent
`

func (r *RefreshTokenRepo) Save(ctx context.Context, arg repository.SaveTokenParams) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken, arg.UserID, arg.TokenHash, arg.ExpiresAt, arg.IPAddress, arg.UserAgent)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return token, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

const getByHash = `-- name: GetByHash
SELECT id, user_id, token_hash, created_at, expires_at, revoked_at, ip_address, user_agent
FROM refresh_tokens
WHERE token_hash = $1
`

// Get token by its fingerprint
// Returns the row even if it is expired or revoked already
func (r *RefreshTokenRepo) GetByHash(ctx context.Context, tokenHash string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getByHash, tokenHash)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const getActive = `-- name: GetActive
SELECT id, user_id, token_hash, created_at, expires_at, revoked_at, ip_address, user_agent
FROM refresh_tokens
WHERE token_hash = $1
  AND revoked_at IS NULL
  AND expires_at > $2
`

// GetActive is the sole authority for "is this refresh token still usable"
func (r *RefreshTokenRepo) GetActive(ctx context.Context, tokenHash string, now time.Time) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getActive, tokenHash, now)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeToken = `-- name: RevokeToken if not revoked yet
UPDATE refresh_tokens
SET revoked_at = COALESCE(revoked_at, $2)
WHERE token_hash = $1
RETURNING revoked_at
`

// Revoke the token
// Idempotent: a second call must not rewrite the stored timestamp. It
// reports ErrRefreshTokenRevoked instead, which lets a rotation detect that
// a concurrent caller already spent the token
func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenHash string) (time.Time, error) {
	// Postgres keeps microseconds, so the round-tripped value must be
	// comparable with what was sent
	now := time.Now().Truncate(time.Microsecond)
	rows, _ := r.DB.Query(ctx, revokeToken, tokenHash, now)
	revokedAt, err := pgx.CollectOneRow(rows, pgx.RowTo[time.Time])

	switch {
	case err == nil && revokedAt.Equal(now):
		return revokedAt, nil
	case err == nil: // revoked_at kept an earlier value, someone got there first
		return revokedAt, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenRevoked)
	case errors.Is(err, pgx.ErrNoRows):
		return revokedAt, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return revokedAt, fmt.Errorf("db error: %w", err)
	}
}

const purgeExpired = `-- name: PurgeExpired
DELETE FROM refresh_tokens
WHERE expires_at < $1
   OR (revoked_at IS NOT NULL AND revoked_at < $2)
`

// PurgeExpired deletes rows that can never be exchanged again: past expiry,
// or revoked longer than the retention window
func (r *RefreshTokenRepo) PurgeExpired(ctx context.Context, now time.Time, revokedBefore time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, purgeExpired, now, revokedBefore)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.RevokedAt, &t.IPAddress, &t.UserAgent)
	return t, err
}
