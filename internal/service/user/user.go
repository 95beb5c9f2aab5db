package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/logger"
	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/repository"
	"github.com/contactly/backend/internal/service/auth"
	"github.com/contactly/backend/internal/service/auth/tokencodec"
)

const (
	// Reset links die after 15 minutes; the cache binding carries the
	// same TTL so the signed token and the binding expire together
	resetTokenTTL = 15 * time.Minute

	emailTokenTTL = 7 * 24 * time.Hour

	mailSendTimeout = 30 * time.Second
)

// ResetTokenCache is the single-use token-to-email binding storage
type ResetTokenCache interface {
	PutResetToken(ctx context.Context, email string, token string) error
	GetEmailForResetToken(ctx context.Context, token string) (string, error)
	DeleteResetToken(ctx context.Context, token string) error
}

// Mailer delivers confirmation and reset messages
type Mailer interface {
	SendEmailConfirmation(ctx context.Context, to string, username string, token string) error
	SendPasswordReset(ctx context.Context, to string, username string, token string) error
}

type UserService struct {
	codec  *tokencodec.Codec
	hasher auth.PasswordHasher
	cache  ResetTokenCache
	mailer Mailer
	logger logger.Logger

	userRepo repository.UserRepo
}

func NewService(
	codec *tokencodec.Codec,
	hasher auth.PasswordHasher,
	cache ResetTokenCache,
	mailer Mailer,
	userRepo repository.UserRepo,
	log logger.Logger,
) (*UserService, error) {
	if codec == nil || cache == nil || userRepo == nil {
		return nil, errors.New("codec, cache and user repo must not be nil")
	}

	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	return &UserService{
		codec:    codec,
		hasher:   hasher,
		cache:    cache,
		mailer:   mailer,
		logger:   log,
		userRepo: userRepo,
	}, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.userRepo.GetUserByEmail(ctx, email)
}

// ConfirmEmailToken validates a confirmation token and flips the confirmed
// flag exactly once. Confirming an already-confirmed email is a no-op
// success, reported so the handler can phrase the response
func (s *UserService) ConfirmEmailToken(ctx context.Context, token string) (alreadyConfirmed bool, err error) {
	claims, err := s.codec.Verify(token)
	if err != nil || claims.Subject == "" {
		return false, apperrors.ErrEmailTokenInvalid
	}

	user, err := s.userRepo.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return false, apperrors.ErrEmailTokenInvalid
		}
		return false, err
	}

	if user.Confirmed {
		return true, nil
	}

	if err := s.userRepo.ConfirmEmail(ctx, user.Email); err != nil {
		return false, err
	}

	return false, nil
}

// RequestEmailConfirmation re-sends the confirmation mail.
// Reports ErrUserNotFound for unknown addresses; the handler answers
// neutrally either way
func (s *UserService) RequestEmailConfirmation(ctx context.Context, email string) (alreadyConfirmed bool, err error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return false, err
	}

	if user.Confirmed {
		return true, nil
	}

	token, err := s.codec.Mint(user.Email, emailTokenTTL)
	if err != nil {
		return false, fmt.Errorf("can't mint confirmation token. Err: %w", err)
	}

	s.sendInBackground(func(ctx context.Context) error {
		return s.mailer.SendEmailConfirmation(ctx, user.Email, user.Username, token.Value)
	}, "confirmation mail failed", user.Email)

	return false, nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, email string, url string) (models.User, error) {
	return s.userRepo.UpdateAvatar(ctx, email, url)
}

// RequestPasswordReset mints a signed 15-minute reset token, stores the
// token-to-email binding and mails the link. Unknown addresses return
// ErrUserNotFound, which the handler hides behind a neutral response so the
// endpoint never confirms whether an email is registered
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.codec.Mint(user.Email, resetTokenTTL)
	if err != nil {
		return fmt.Errorf("can't mint reset token. Err: %w", err)
	}

	if err := s.cache.PutResetToken(ctx, user.Email, token.Value); err != nil {
		return err
	}

	s.sendInBackground(func(ctx context.Context) error {
		return s.mailer.SendPasswordReset(ctx, user.Email, user.Username, token.Value)
	}, "reset mail failed", user.Email)

	return nil
}

// ResetPassword completes the flow: resolve the binding, rehash, persist,
// delete the binding. Single use is enforced by the deletion
func (s *UserService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	email, err := s.cache.GetEmailForResetToken(ctx, token)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password. Err: %w", err)
	}

	if err := s.userRepo.SetPasswordHash(ctx, user.Email, hash); err != nil {
		return err
	}

	if err := s.cache.DeleteResetToken(ctx, token); err != nil {
		s.logger.Warn("can't delete reset token", "error", err.Error())
	}

	return nil
}

func (s *UserService) sendInBackground(send func(context.Context) error, failMsg string, email string) {
	if s.mailer == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			s.logger.Error(failMsg, "email", email, "error", err.Error())
		}
	}()
}
