package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/repository"
	"github.com/contactly/backend/internal/testutil"
)

func Test_Storage_InTx(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("commit persists every write", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := NewStorage(tx)

			var userID int64
			err := storage.InTx(t.Context(), func(s repository.Storage) error {
				user, err := s.User().CreateUser(t.Context(), userParams("nk", "nk@example.com"))
				if err != nil {
					return err
				}
				userID = user.ID

				_, err = s.Refresh().Save(t.Context(), repository.SaveTokenParams{
					UserID:    userID,
					TokenHash: "somehash",
					ExpiresAt: time.Now().Add(time.Hour),
				})
				return err
			})
			require.NoError(t, err)

			// Both rows are visible outside the inner transaction
			user, err := storage.User().GetUserByID(t.Context(), userID)
			require.NoError(t, err)
			require.Equal(t, "nk", user.Username)

			token, err := storage.Refresh().GetByHash(t.Context(), "somehash")
			require.NoError(t, err)
			require.Equal(t, userID, token.UserID)
		})
	})

	t.Run("error rolls back every write", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := NewStorage(tx)
			boom := errors.New("boom")

			err := storage.InTx(t.Context(), func(s repository.Storage) error {
				if _, err := s.User().CreateUser(t.Context(), userParams("nk", "nk@example.com")); err != nil {
					return err
				}
				return boom
			})
			require.ErrorIs(t, err, boom)

			_, err = storage.User().GetUserByUsername(t.Context(), "nk")
			require.ErrorIs(t, err, apperrors.ErrUserNotFound, "rolled back user should not exist")
		})
	})
}
