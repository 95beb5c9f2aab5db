package models

import (
	"time"
)

// RefreshToken is the durable record of one opaque refresh token.
// Only the SHA-256 fingerprint of the token value is stored, never the
// plaintext, so a database leak yields nothing replayable.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time // nil while the token is usable
	IPAddress string
	UserAgent string
}

// Active reports whether the token may still be exchanged at the given time.
func (t RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
