package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/repository"
	"github.com/contactly/backend/internal/testutil"
)

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withRepos := func(dbpool *pgxpool.Pool, t *testing.T, fn func(users *UserRepo, tokens *RefreshTokenRepo)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			fn(&UserRepo{DB: tx}, &RefreshTokenRepo{DB: tx})
		})
	}

	saveParams := func(userID int64, hash string, expiresAt time.Time) repository.SaveTokenParams {
		return repository.SaveTokenParams{
			UserID:    userID,
			TokenHash: hash,
			ExpiresAt: expiresAt,
			IPAddress: "192.0.2.1",
			UserAgent: "tests",
		}
	}

	t.Run("save and get", func(t *testing.T) {
		withRepos(pg.Pool, t, func(users *UserRepo, tokens *RefreshTokenRepo) {
			user, err := users.CreateUser(t.Context(), userParams("nk", "nk@example.com"))
			require.NoError(t, err)

			expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
			saved, err := tokens.Save(t.Context(), saveParams(user.ID, "hash-1", expiresAt))

			require.NoError(t, err)
			require.NotZero(t, saved.ID)
			require.Equal(t, user.ID, saved.UserID)
			require.Equal(t, "hash-1", saved.TokenHash)
			require.Equal(t, "192.0.2.1", saved.IPAddress)
			require.Equal(t, "tests", saved.UserAgent)
			require.WithinDuration(t, expiresAt, saved.ExpiresAt, time.Microsecond)
			require.Nil(t, saved.RevokedAt, "fresh token should not be revoked")

			got, err := tokens.GetByHash(t.Context(), "hash-1")
			require.NoError(t, err)
			require.Equal(t, saved.ID, got.ID)
		})
	})

	t.Run("get not found", func(t *testing.T) {
		withRepos(pg.Pool, t, func(users *UserRepo, tokens *RefreshTokenRepo) {
			_, err := tokens.GetByHash(t.Context(), "no-such-hash")
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("get active skips expired and revoked", func(t *testing.T) {
		withRepos(pg.Pool, t, func(users *UserRepo, tokens *RefreshTokenRepo) {
			user, err := users.CreateUser(t.Context(), userParams("nk", "nk@example.com"))
			require.NoError(t, err)

			now := time.Now()

			_, err = tokens.Save(t.Context(), saveParams(user.ID, "live", now.Add(time.Hour)))
			require.NoError(t, err)
			_, err = tokens.Save(t.Context(), saveParams(user.ID, "expired", now.Add(-time.Hour)))
			require.NoError(t, err)
			_, err = tokens.Save(t.Context(), saveParams(user.ID, "revoked", now.Add(time.Hour)))
			require.NoError(t, err)
			_, err = tokens.Revoke(t.Context(), "revoked")
			require.NoError(t, err)

			got, err := tokens.GetActive(t.Context(), "live", now)
			require.NoError(t, err)
			require.Equal(t, "live", got.TokenHash)

			_, err = tokens.GetActive(t.Context(), "expired", now)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)

			_, err = tokens.GetActive(t.Context(), "revoked", now)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("revoke ok", func(t *testing.T) {
		withRepos(pg.Pool, t, func(users *UserRepo, tokens *RefreshTokenRepo) {
			user, err := users.CreateUser(t.Context(), userParams("nk", "nk@example.com"))
			require.NoError(t, err)

			_, err = tokens.Save(t.Context(), saveParams(user.ID, "hash-1", time.Now().Add(time.Hour)))
			require.NoError(t, err)

			revokedAt, err := tokens.Revoke(t.Context(), "hash-1")
			require.NoError(t, err)
			require.WithinDuration(t, time.Now(), revokedAt, 50*time.Millisecond, "should be revoked close to now() enough")

			got, err := tokens.GetByHash(t.Context(), "hash-1")
			require.NoError(t, err)
			require.NotNil(t, got.RevokedAt)
		})
	})

	t.Run("revoke twice keeps first timestamp", func(t *testing.T) {
		withRepos(pg.Pool, t, func(users *UserRepo, tokens *RefreshTokenRepo) {
			user, err := users.CreateUser(t.Context(), userParams("nk", "nk@example.com"))
			require.NoError(t, err)

			_, err = tokens.Save(t.Context(), saveParams(user.ID, "hash-1", time.Now().Add(time.Hour)))
			require.NoError(t, err)

			first, err := tokens.Revoke(t.Context(), "hash-1")
			require.NoError(t, err)

			second, err := tokens.Revoke(t.Context(), "hash-1")
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenRevoked, "second revoke should report the token is spent")
			require.True(t, first.Equal(second), "stored timestamp should not be rewritten")
		})
	})

	t.Run("revoke not existed token", func(t *testing.T) {
		withRepos(pg.Pool, t, func(users *UserRepo, tokens *RefreshTokenRepo) {
			_, err := tokens.Revoke(t.Context(), "no-such-hash")
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("purge expired and long revoked", func(t *testing.T) {
		withRepos(pg.Pool, t, func(users *UserRepo, tokens *RefreshTokenRepo) {
			user, err := users.CreateUser(t.Context(), userParams("nk", "nk@example.com"))
			require.NoError(t, err)

			now := time.Now()

			_, err = tokens.Save(t.Context(), saveParams(user.ID, "live", now.Add(time.Hour)))
			require.NoError(t, err)
			_, err = tokens.Save(t.Context(), saveParams(user.ID, "expired", now.Add(-time.Hour)))
			require.NoError(t, err)
			_, err = tokens.Save(t.Context(), saveParams(user.ID, "freshly-revoked", now.Add(time.Hour)))
			require.NoError(t, err)
			_, err = tokens.Revoke(t.Context(), "freshly-revoked")
			require.NoError(t, err)

			// Retention cutoff in the past: only the expired row qualifies
			deleted, err := tokens.PurgeExpired(t.Context(), now, now.Add(-24*time.Hour))
			require.NoError(t, err)
			require.Equal(t, int64(1), deleted)

			// Cutoff in the future also sweeps the freshly revoked row
			deleted, err = tokens.PurgeExpired(t.Context(), now, now.Add(time.Minute))
			require.NoError(t, err)
			require.Equal(t, int64(1), deleted)

			_, err = tokens.GetByHash(t.Context(), "live")
			require.NoError(t, err, "live token should survive the purge")
		})
	})
}
