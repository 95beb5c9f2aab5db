package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/repository"
	"github.com/contactly/backend/internal/testutil"
)

func userParams(username string, email string) repository.CreateUserParams {
	return repository.CreateUserParams{
		Username:       username,
		Email:          email,
		HashedPassword: "hashedpassword123",
		Avatar:         "https://www.gravatar.com/avatar/abc?d=identicon",
		Role:           models.RoleUser,
	}
}

func Test_UserRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withTx := func(dbpool *pgxpool.Pool, t *testing.T, fn func(r *UserRepo)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			fn(&UserRepo{DB: tx})
		})
	}

	t.Run("create user ok", func(t *testing.T) {
		withTx(pg.Pool, t, func(r *UserRepo) {
			user, err := r.CreateUser(t.Context(), userParams("nk", "nk@example.com"))

			require.NoError(t, err)
			assert.Greater(t, user.ID, int64(0), "ID should be generated")
			assert.Equal(t, "nk", user.Username)
			assert.Equal(t, "nk@example.com", user.Email)
			assert.Equal(t, "hashedpassword123", user.HashedPassword)
			assert.Equal(t, models.RoleUser, user.Role)
			assert.False(t, user.Confirmed, "new users should be unconfirmed")
			assert.WithinDuration(t, time.Now(), user.CreatedAt, time.Second, "CreatedAt should be recent")
		})
	})

	t.Run("create user duplicate username fails", func(t *testing.T) {
		withTx(pg.Pool, t, func(r *UserRepo) {
			_, err := r.CreateUser(t.Context(), userParams("nk", "nk@example.com"))
			require.NoError(t, err)

			_, err = r.CreateUser(t.Context(), userParams("nk", "other@example.com"))
			require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("create user duplicate email fails", func(t *testing.T) {
		withTx(pg.Pool, t, func(r *UserRepo) {
			_, err := r.CreateUser(t.Context(), userParams("nk", "nk@example.com"))
			require.NoError(t, err)

			_, err = r.CreateUser(t.Context(), userParams("other", "nk@example.com"))
			require.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
		})
	})

	t.Run("get user by id or name or email", func(t *testing.T) {
		withTx(pg.Pool, t, func(r *UserRepo) {
			created, err := r.CreateUser(t.Context(), userParams("nk", "nk@example.com"))
			require.NoError(t, err)

			byID, err := r.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			assert.Equal(t, created, byID)

			byUsername, err := r.GetUserByUsername(t.Context(), "nk")
			require.NoError(t, err)
			assert.Equal(t, created.ID, byUsername.ID)

			byEmail, err := r.GetUserByEmail(t.Context(), "nk@example.com")
			require.NoError(t, err)
			assert.Equal(t, created.ID, byEmail.ID)
		})
	})

	t.Run("get user not found", func(t *testing.T) {
		withTx(pg.Pool, t, func(r *UserRepo) {
			_, err := r.GetUserByID(t.Context(), 100500)
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)

			_, err = r.GetUserByUsername(t.Context(), "nobody")
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)

			_, err = r.GetUserByEmail(t.Context(), "nobody@example.com")
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("confirm email", func(t *testing.T) {
		withTx(pg.Pool, t, func(r *UserRepo) {
			_, err := r.CreateUser(t.Context(), userParams("nk", "nk@example.com"))
			require.NoError(t, err)

			require.NoError(t, r.ConfirmEmail(t.Context(), "nk@example.com"))

			user, err := r.GetUserByEmail(t.Context(), "nk@example.com")
			require.NoError(t, err)
			require.True(t, user.Confirmed)

			// Confirming twice should stay a no-op success
			require.NoError(t, r.ConfirmEmail(t.Context(), "nk@example.com"))
		})
	})

	t.Run("confirm email unknown user", func(t *testing.T) {
		withTx(pg.Pool, t, func(r *UserRepo) {
			err := r.ConfirmEmail(t.Context(), "nobody@example.com")
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("update avatar", func(t *testing.T) {
		withTx(pg.Pool, t, func(r *UserRepo) {
			_, err := r.CreateUser(t.Context(), userParams("nk", "nk@example.com"))
			require.NoError(t, err)

			user, err := r.UpdateAvatar(t.Context(), "nk@example.com", "https://cdn.example.com/nk.png")
			require.NoError(t, err)
			require.Equal(t, "https://cdn.example.com/nk.png", user.Avatar)
		})
	})

	t.Run("set password hash", func(t *testing.T) {
		withTx(pg.Pool, t, func(r *UserRepo) {
			_, err := r.CreateUser(t.Context(), userParams("nk", "nk@example.com"))
			require.NoError(t, err)

			require.NoError(t, r.SetPasswordHash(t.Context(), "nk@example.com", "newhash"))

			user, err := r.GetUserByEmail(t.Context(), "nk@example.com")
			require.NoError(t, err)
			require.Equal(t, "newhash", user.HashedPassword)

			err = r.SetPasswordHash(t.Context(), "nobody@example.com", "newhash")
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})
}
