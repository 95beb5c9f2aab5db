package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/repository"
)

type purgeFunc func(ctx context.Context, now time.Time, revokedBefore time.Time) (int64, error)

func (f purgeFunc) PurgeExpired(ctx context.Context, now time.Time, revokedBefore time.Time) (int64, error) {
	return f(ctx, now, revokedBefore)
}

func (f purgeFunc) Save(context.Context, repository.SaveTokenParams) (models.RefreshToken, error) {
	panic("not expected to be called")
}
func (f purgeFunc) GetByHash(context.Context, string) (models.RefreshToken, error) {
	panic("not expected to be called")
}
func (f purgeFunc) GetActive(context.Context, string, time.Time) (models.RefreshToken, error) {
	panic("not expected to be called")
}
func (f purgeFunc) Revoke(context.Context, string) (time.Time, error) {
	panic("not expected to be called")
}

func TestSweeper(t *testing.T) {
	t.Parallel()

	t.Run("sweep purges with retention window", func(t *testing.T) {
		var gotNow, gotCutoff time.Time
		repo := purgeFunc(func(ctx context.Context, now time.Time, revokedBefore time.Time) (int64, error) {
			gotNow, gotCutoff = now, revokedBefore
			return 3, nil
		})

		s := NewSweeper(repo, nil)
		s.sweep(t.Context())

		require.WithinDuration(t, time.Now(), gotNow, time.Second)
		require.WithinDuration(t, gotNow.Add(-defaultRevokedRetention), gotCutoff, time.Second)
	})

	t.Run("sweep failure is swallowed", func(t *testing.T) {
		repo := purgeFunc(func(ctx context.Context, now time.Time, revokedBefore time.Time) (int64, error) {
			return 0, errors.New("db is gone")
		})

		s := NewSweeper(repo, nil)
		s.sweep(t.Context()) // must not panic, the next tick retries
	})

	t.Run("run sweeps on ticks and stops on cancel", func(t *testing.T) {
		var calls atomic.Int64
		repo := purgeFunc(func(ctx context.Context, now time.Time, revokedBefore time.Time) (int64, error) {
			calls.Add(1)
			return 0, nil
		})

		s := NewSweeper(repo, nil)
		s.interval = 10 * time.Millisecond

		ctx, cancel := context.WithCancel(t.Context())
		stopped := s.Run(ctx)

		require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

		cancel()
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("sweeper did not stop after context cancellation")
		}
	})
}
