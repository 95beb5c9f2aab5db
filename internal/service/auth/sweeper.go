package auth

import (
	"context"
	"time"

	"github.com/contactly/backend/internal/logger"
	"github.com/contactly/backend/internal/repository"
)

const (
	defaultSweepInterval    = time.Hour
	defaultRevokedRetention = 7 * 24 * time.Hour
)

// Sweeper deletes refresh-token rows that can never be exchanged again.
// It runs on its own schedule, decoupled from any request: a failed sweep
// is logged and retried on the next tick, never user-visible
type Sweeper struct {
	interval  time.Duration
	retention time.Duration

	refreshRepo repository.RefreshTokenRepo
	logger      logger.Logger
}

func NewSweeper(refreshRepo repository.RefreshTokenRepo, log logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewNoOp()
	}

	return &Sweeper{
		interval:    defaultSweepInterval,
		retention:   defaultRevokedRetention,
		refreshRepo: refreshRepo,
		logger:      log,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
// The returned channel closes when the sweeper has fully stopped
func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Sweeper stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()

	return idleStopped
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()

	deleted, err := s.refreshRepo.PurgeExpired(ctx, now, now.Add(-s.retention))
	if err != nil {
		s.logger.Warn("refresh token sweep failed", "error", err.Error())
		return
	}

	if deleted > 0 {
		s.logger.Info("swept refresh tokens", "deleted", deleted)
	}
}
