// Package cache holds the Redis-backed session cache: the access-token
// blacklist, per-token identity snapshots and password-reset token bindings.
//
// The cache is an optimization layer for identity snapshots, but it is the
// only authority for access-token revocation, so the blacklist check fails
// hard when Redis is unreachable instead of failing open.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/models"
)

const (
	blacklistPrefix  = "bl:"
	identityPrefix   = "user:"
	resetTokenPrefix = "reset_token:"

	// Identity snapshots live a fixed hour regardless of the token's
	// remaining life; SetIdentity caps it at the token expiry
	defaultIdentityTTL = time.Hour

	// Reset tokens are single use and short lived
	defaultResetTokenTTL = 15 * time.Minute

	connectTimeout = 2 * time.Second
)

type SessionCache struct {
	rdb *redis.Client

	identityTTL   time.Duration
	resetTokenTTL time.Duration
}

// Connect dials Redis by URL (redis://...) and pings it, so a misconfigured
// cache fails the process at startup instead of on the first request
func Connect(ctx context.Context, url string) (*SessionCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis url. Err: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping failed. Err: %w", err)
	}

	return &SessionCache{
		rdb:           rdb,
		identityTTL:   defaultIdentityTTL,
		resetTokenTTL: defaultResetTokenTTL,
	}, nil
}

func (c *SessionCache) Close() error {
	return c.rdb.Close()
}

// IsAccessTokenRevoked checks for a blacklist marker.
// A cache fault here is a hard failure: treating "cache down" as
// "not revoked" would reopen a revoked session
func (c *SessionCache) IsAccessTokenRevoked(ctx context.Context, token string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", apperrors.ErrCacheUnavailable, err)
	}

	return n > 0, nil
}

// BlacklistAccessToken marks the token revoked for exactly the remainder of
// its natural life, so the marker self-expires together with the token.
// Non-positive ttl means the token is already dead and there is nothing to do
func (c *SessionCache) BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := c.rdb.Set(ctx, blacklistPrefix+token, "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrCacheUnavailable, err)
	}

	return nil
}

// GetIdentity returns the cached snapshot for the token or nil on miss.
// Best effort: the caller falls back to the codec and the user directory
func (c *SessionCache) GetIdentity(ctx context.Context, token string) (*models.UserSnapshot, error) {
	data, err := c.rdb.Get(ctx, identityPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get identity. Err: %w", err)
	}

	var snapshot models.UserSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("cache: unmarshal identity. Err: %w", err)
	}

	return &snapshot, nil
}

// SetIdentity stores the snapshot with the fixed identity TTL, capped by the
// access token's remaining life so a snapshot never outlives its token
func (c *SessionCache) SetIdentity(ctx context.Context, token string, snapshot models.UserSnapshot, tokenExpiresIn time.Duration) error {
	ttl := c.identityTTL
	if tokenExpiresIn > 0 && tokenExpiresIn < ttl {
		ttl = tokenExpiresIn
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("cache: marshal identity. Err: %w", err)
	}

	if err := c.rdb.Set(ctx, identityPrefix+token, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set identity. Err: %w", err)
	}

	return nil
}

// PutResetToken binds a reset token to the email it may reset
func (c *SessionCache) PutResetToken(ctx context.Context, email string, token string) error {
	if err := c.rdb.Set(ctx, resetTokenPrefix+token, email, c.resetTokenTTL).Err(); err != nil {
		return fmt.Errorf("cache: put reset token. Err: %w", err)
	}

	return nil
}

// GetEmailForResetToken resolves the binding.
// Missing or expired bindings are reported with ErrResetTokenInvalid
func (c *SessionCache) GetEmailForResetToken(ctx context.Context, token string) (string, error) {
	email, err := c.rdb.Get(ctx, resetTokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("cache: %w", apperrors.ErrResetTokenInvalid)
	}
	if err != nil {
		return "", fmt.Errorf("cache: get reset token. Err: %w", err)
	}

	return email, nil
}

// DeleteResetToken enforces single use of the binding
func (c *SessionCache) DeleteResetToken(ctx context.Context, token string) error {
	if err := c.rdb.Del(ctx, resetTokenPrefix+token).Err(); err != nil {
		return fmt.Errorf("cache: delete reset token. Err: %w", err)
	}

	return nil
}
