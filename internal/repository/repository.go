package repository

import (
	"context"
	"time"

	"github.com/contactly/backend/internal/models"
)

type CreateUserParams struct {
	Username       string
	Email          string
	HashedPassword string
	Avatar         string
	Role           models.Role
}

// UserRepo is the directory of user identity records
type UserRepo interface {
	// Create user
	// Returns apperrors.ErrUserAlreadyExists or apperrors.ErrEmailAlreadyExists
	// when a unique index rejects the row
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Exact-match lookups
	// Absent user is reported with apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Set confirmed flag; confirming twice leaves the row unchanged
	ConfirmEmail(ctx context.Context, email string) error

	UpdateAvatar(ctx context.Context, email string, url string) (models.User, error)
	SetPasswordHash(ctx context.Context, email string, hash string) error
}

type SaveTokenParams struct {
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
}

// RefreshTokenRepo owns the refresh_tokens table.
// It is the sole authority for "is this refresh token still usable".
type RefreshTokenRepo interface {
	Save(ctx context.Context, arg SaveTokenParams) (models.RefreshToken, error)

	// Return the token even if it is expired or revoked already
	GetByHash(ctx context.Context, tokenHash string) (models.RefreshToken, error)

	// Return the token only while revoked_at IS NULL and expires_at > now
	// Otherwise apperrors.ErrRefreshTokenNotFound
	GetActive(ctx context.Context, tokenHash string, now time.Time) (models.RefreshToken, error)

	// Set revoked_at once. A second call must not overwrite the stored
	// timestamp and must report apperrors.ErrRefreshTokenRevoked so a
	// concurrent rotation loser can be rejected
	Revoke(ctx context.Context, tokenHash string) (revokedAt time.Time, err error)

	// Delete rows past expiry or revoked before the cutoff. Maintenance
	// only, never part of the request path
	PurgeExpired(ctx context.Context, now time.Time, revokedBefore time.Time) (int64, error)
}

type ListContactsParams struct {
	UserID int64
	Search string // matches first/last name, email or phone when not empty
	Limit  int
	Offset int
}

type ContactParams struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Birthday  time.Time
	Note      string
}

type ContactRepo interface {
	CreateContact(ctx context.Context, userID int64, arg ContactParams) (models.Contact, error)
	GetContact(ctx context.Context, userID int64, contactID int64) (models.Contact, error)
	ListContacts(ctx context.Context, arg ListContactsParams) ([]models.Contact, error)
	UpdateContact(ctx context.Context, userID int64, contactID int64, arg ContactParams) (models.Contact, error)
	DeleteContact(ctx context.Context, userID int64, contactID int64) error

	// Contacts whose birthday (month/day) falls within the next daysAhead days
	UpcomingBirthdays(ctx context.Context, userID int64, from time.Time, daysAhead int) ([]models.Contact, error)
}

// Storage aggregates the repositories over one connection or transaction
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Contact() ContactRepo

	// Run fn with a Storage bound to a single transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
