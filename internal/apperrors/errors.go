package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")

	// Login failures: absent user and wrong password collapse into one error
	// so the response never tells which half of the pair was wrong
	ErrBadCredentials    = errors.New("incorrect username or password")
	ErrEmailNotConfirmed = errors.New("email not confirmed")

	ErrAccessTokenInvalid = errors.New("access token is invalid or expired")
	ErrAccessTokenRevoked = errors.New("access token has been revoked")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token is revoked")
	ErrRefreshTokenInvalid  = errors.New("refresh token is invalid")

	ErrEmailTokenInvalid = errors.New("email verification token is invalid")
	ErrResetTokenInvalid = errors.New("reset token is invalid or expired")

	// Cache fault on a check that must not fail open (token blacklist)
	ErrCacheUnavailable = errors.New("session cache unavailable")

	ErrContactNotFound      = errors.New("contact not found")
	ErrContactAlreadyExists = errors.New("contact already exists")
)
