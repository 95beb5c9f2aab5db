// Package tokencodec signs and verifies the compact self-contained tokens
// used for access, email-confirmation and password-reset links. It is a pure
// function of the secret and its input: no storage, no clocks beyond "now".
package tokencodec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/models"
)

const defaultSigningMethod = "HS256"

type Claims struct {
	jwt.RegisteredClaims
}

type Config struct {
	// Secret key to sign token payloads
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set the default is used
	Alg string
}

type Codec struct {
	key string
	alg jwt.SigningMethod
}

func New(cfg Config) (*Codec, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("unknown signing method: %s", cfg.Alg)
	}

	return &Codec{key: cfg.SecretKey, alg: alg}, nil
}

// Mint a signed token carrying subject, issued-at and absolute expiry
func (c *Codec) Mint(subject string, ttl time.Duration) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(
		c.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   subject,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
		},
	)

	signed, err := token.SignedString([]byte(c.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Verify the signature and the registered claims.
// Bad signature, malformed payload, wrong algorithm and past expiry all
// collapse into ErrAccessTokenInvalid: no payload is trusted partially
func (c *Codec) Verify(value string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(
		value,
		&claims,
		func(t *jwt.Token) (any, error) { return []byte(c.key), nil },
		jwt.WithValidMethods([]string{c.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)

	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrAccessTokenInvalid, err)
	}

	return claims, nil
}
