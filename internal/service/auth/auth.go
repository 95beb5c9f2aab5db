package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/logger"
	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/repository"
	"github.com/contactly/backend/internal/service/auth/tokencodec"
)

const (
	defaultAccessTokenTTL  = 30 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour

	// Email-confirmation links stay valid for a week
	emailTokenTTL = 7 * 24 * time.Hour

	// Refresh tokens carry 32 bytes of entropy; only their SHA-256
	// fingerprint is stored
	refreshTokenBytes = 32

	mailSendTimeout = 30 * time.Second
)

// SessionCache is the cache surface the orchestrator needs: the blacklist
// (authoritative for access-token revocation) and identity snapshots
type SessionCache interface {
	IsAccessTokenRevoked(ctx context.Context, token string) (bool, error)
	BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error
	GetIdentity(ctx context.Context, token string) (*models.UserSnapshot, error)
	SetIdentity(ctx context.Context, token string, snapshot models.UserSnapshot, tokenExpiresIn time.Duration) error
}

// Mailer delivers the confirmation message minted on registration
type Mailer interface {
	SendEmailConfirmation(ctx context.Context, to string, username string, token string) error
}

type Config struct {
	// Hasher used during registration and login
	// BcryptHasher is used if not set
	Hasher PasswordHasher

	// Access and refresh token lifetimes
	// If not set the defaults are used (30 minutes / 7 days)
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Logger for best-effort paths (cache population, outbound mail)
	Logger logger.Logger
}

// AuthService ties the hasher, the codec, the session store and the session
// cache into the session lifecycle state machine
type AuthService struct {
	codec  *tokencodec.Codec
	hasher PasswordHasher
	cache  SessionCache
	mailer Mailer
	logger logger.Logger

	userRepo    repository.UserRepo
	refreshRepo repository.RefreshTokenRepo

	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(
	cfg Config,
	codec *tokencodec.Codec,
	cache SessionCache,
	mailer Mailer,
	userRepo repository.UserRepo,
	refreshRepo repository.RefreshTokenRepo,
) (*AuthService, error) {
	if codec == nil {
		return nil, errors.New("token codec must not be nil")
	}
	if cache == nil {
		return nil, errors.New("session cache must not be nil")
	}
	if userRepo == nil || refreshRepo == nil {
		return nil, errors.New("repos must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOp()
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTokenTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTokenTTL, defaultRefreshTokenTTL)

	return &AuthService{
		codec:       codec,
		hasher:      hasher,
		cache:       cache,
		mailer:      mailer,
		logger:      log,
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		accessTTL:   cfg.AccessTokenTTL,
		refreshTTL:  cfg.RefreshTokenTTL,
	}, nil
}

type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// Register a new user
// The uniqueness pre-check is best effort: a concurrent duplicate slips
// through to the unique indexes, which report the same conflict errors
func (s *AuthService) Register(ctx context.Context, arg RegisterParams) (models.User, error) {
	var user models.User

	_, err := s.userRepo.GetUserByUsername(ctx, arg.Username)
	switch {
	case err == nil:
		return user, apperrors.ErrUserAlreadyExists
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return user, err
	}

	_, err = s.userRepo.GetUserByEmail(ctx, arg.Email)
	switch {
	case err == nil:
		return user, apperrors.ErrEmailAlreadyExists
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return user, err
	}

	hash, err := s.hasher.Hash(arg.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	user, err = s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Username:       arg.Username,
		Email:          arg.Email,
		HashedPassword: hash,
		Avatar:         GravatarURL(arg.Email),
		Role:           models.RoleUser,
	})
	if err != nil {
		return user, err
	}

	s.sendConfirmationMail(user)

	return user, nil
}

// sendConfirmationMail mints the email token and delivers it in the
// background. Delivery failures are logged, never surfaced to the requester
func (s *AuthService) sendConfirmationMail(user models.User) {
	if s.mailer == nil {
		return
	}

	token, err := s.codec.Mint(user.Email, emailTokenTTL)
	if err != nil {
		s.logger.Error("can't mint confirmation token", "email", user.Email, "error", err.Error())
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()

		if err := s.mailer.SendEmailConfirmation(ctx, user.Email, user.Username, token.Value); err != nil {
			s.logger.Error("confirmation mail failed", "email", user.Email, "error", err.Error())
		}
	}()
}

// Authenticate checks the credential pair.
// Absent user and wrong password return the same ErrBadCredentials so the
// response never confirms which usernames exist
func (s *AuthService) Authenticate(ctx context.Context, username string, password string) (models.User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return user, apperrors.ErrBadCredentials
		}
		return user, err
	}

	if !user.Confirmed {
		return user, apperrors.ErrEmailNotConfirmed
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return user, apperrors.ErrBadCredentials
	}

	return user, nil
}

// IssueAccessToken mints a signed access token for the user. Pure, no I/O
func (s *AuthService) IssueAccessToken(username string) (models.IssuedToken, error) {
	return s.codec.Mint(username, s.accessTTL)
}

// IssueRefreshToken generates a random opaque token, persists its
// fingerprint and returns the plaintext: the only moment it exists
// outside the client
func (s *AuthService) IssueRefreshToken(ctx context.Context, userID int64, ip string, userAgent string) (models.IssuedToken, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while generating refresh token. Err: %w", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(b)

	token, err := s.refreshRepo.Save(ctx, repository.SaveTokenParams{
		UserID:    userID,
		TokenHash: FingerprintToken(plaintext),
		ExpiresAt: time.Now().Add(s.refreshTTL).Truncate(time.Second),
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.IssuedToken{Value: plaintext, ExpiresAt: token.ExpiresAt}, nil
}

// Login authenticates and issues a fresh token pair
func (s *AuthService) Login(ctx context.Context, username string, password string, ip string, userAgent string) (models.TokenPair, error) {
	var pair models.TokenPair

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return pair, err
	}

	return s.issuePair(ctx, user, ip, userAgent)
}

// Refresh rotates a refresh token: the new pair is durably issued before the
// old record is revoked, so a crash mid-rotation leaves the old token usable
// instead of orphaning the session. The conditional revoke rejects the loser
// of two concurrent rotations with the same token
func (s *AuthService) Refresh(ctx context.Context, refreshPlaintext string, ip string, userAgent string) (models.TokenPair, error) {
	var pair models.TokenPair

	old, err := s.refreshRepo.GetActive(ctx, FingerprintToken(refreshPlaintext), time.Now())
	if err != nil {
		if errors.Is(err, apperrors.ErrRefreshTokenNotFound) {
			return pair, apperrors.ErrRefreshTokenInvalid
		}
		return pair, err
	}

	user, err := s.userRepo.GetUserByID(ctx, old.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return pair, apperrors.ErrRefreshTokenInvalid
		}
		return pair, err
	}

	pair, err = s.issuePair(ctx, user, ip, userAgent)
	if err != nil {
		return pair, err
	}

	_, err = s.refreshRepo.Revoke(ctx, old.TokenHash)
	if err != nil && errors.Is(err, apperrors.ErrRefreshTokenRevoked) {
		// Lost the race against a concurrent rotation: take back the pair
		// issued above so one spent token never yields two live sessions
		if _, rerr := s.refreshRepo.Revoke(ctx, FingerprintToken(pair.Refresh.Value)); rerr != nil {
			return models.TokenPair{}, rerr
		}
		return models.TokenPair{}, apperrors.ErrRefreshTokenInvalid
	}
	if err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

func (s *AuthService) issuePair(ctx context.Context, user models.User, ip string, userAgent string) (models.TokenPair, error) {
	var pair models.TokenPair

	access, err := s.IssueAccessToken(user.Username)
	if err != nil {
		return pair, fmt.Errorf("token could not be generated, sorry. Err: %w", err)
	}

	refresh, err := s.IssueRefreshToken(ctx, user.ID, ip, userAgent)
	if err != nil {
		return pair, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// ResolveUser maps a bearer access token to its user.
// Order matters: blacklist first (hard-fail on cache fault), then the cached
// snapshot, then signature verification and the directory lookup
func (s *AuthService) ResolveUser(ctx context.Context, accessToken string) (models.User, error) {
	var user models.User

	revoked, err := s.cache.IsAccessTokenRevoked(ctx, accessToken)
	if err != nil {
		return user, err
	}
	if revoked {
		return user, apperrors.ErrAccessTokenRevoked
	}

	snapshot, err := s.cache.GetIdentity(ctx, accessToken)
	if err != nil {
		// Identity cache is best effort, fall through to the codec
		s.logger.Warn("identity cache read failed", "error", err.Error())
	}
	if snapshot != nil {
		return userFromSnapshot(*snapshot), nil
	}

	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		return user, err
	}
	if claims.Subject == "" {
		return user, apperrors.ErrAccessTokenInvalid
	}

	user, err = s.userRepo.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Subject no longer exists, the token proves nothing
			return user, apperrors.ErrAccessTokenInvalid
		}
		return user, err
	}

	err = s.cache.SetIdentity(ctx, accessToken, models.SnapshotOf(user), time.Until(claims.ExpiresAt.Time))
	if err != nil {
		s.logger.Warn("identity cache write failed", "error", err.Error())
	}

	return user, nil
}

// Logout revokes the refresh record (idempotent) and blacklists the access
// token for the remainder of its natural life
func (s *AuthService) Logout(ctx context.Context, accessToken string, refreshPlaintext string) error {
	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		return err
	}

	err = s.cache.BlacklistAccessToken(ctx, accessToken, time.Until(claims.ExpiresAt.Time))
	if err != nil {
		return err
	}

	_, err = s.refreshRepo.Revoke(ctx, FingerprintToken(refreshPlaintext))
	if err != nil && !errors.Is(err, apperrors.ErrRefreshTokenNotFound) && !errors.Is(err, apperrors.ErrRefreshTokenRevoked) {
		return err
	}

	return nil
}

func userFromSnapshot(s models.UserSnapshot) models.User {
	// Snapshots never carry the password hash
	return models.User{
		ID:       s.ID,
		Username: s.Username,
		Email:    s.Email,
		Avatar:   s.Avatar,
		Role:     s.Role,
	}
}
