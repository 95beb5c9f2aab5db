package handlers

import (
	"context"
	"net"
	"net/http"

	"github.com/contactly/backend/internal/handlers/middleware"
	"github.com/contactly/backend/internal/logger"
	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/repository"
	"github.com/contactly/backend/internal/service/auth"
	"github.com/contactly/backend/internal/service/upload"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	userService userService,
	contactService contactService,
	uploader upload.FileUploader,
	db dbPinger,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(authService)

	root := http.NewServeMux()

	root.Handle("GET /api/healthchecker", handleHealthcheck(db, logger))

	root.Handle("POST /auth/register", handleRegister(authService, logger))
	root.Handle("POST /auth/login", handleLogin(authService, logger))
	root.Handle("POST /auth/refresh", handleTokenRefresh(authService, logger))
	root.Handle("POST /auth/logout", handleLogout(authService, logger))

	root.Handle("GET /users/me", withAuth(handleUserMe()))
	root.Handle("GET /users/confirmed_email/{token}", handleConfirmEmail(userService, logger))
	root.Handle("POST /users/request_email", handleRequestEmail(userService, logger))
	root.Handle("PATCH /users/avatar", withAuth(handleUpdateAvatar(userService, uploader, logger)))
	root.Handle("POST /users/request_reset_password", handleRequestPasswordReset(userService, logger))
	root.Handle("PATCH /users/reset_password/{token}", handleResetPassword(userService, logger))

	root.Handle("POST /contacts", withAuth(handleCreateContact(contactService, logger)))
	root.Handle("GET /contacts", withAuth(handleListContacts(contactService, logger)))
	root.Handle("GET /contacts/birthdays", withAuth(handleUpcomingBirthdays(contactService, logger)))
	root.Handle("GET /contacts/{id}", withAuth(handleGetContact(contactService, logger)))
	root.Handle("PUT /contacts/{id}", withAuth(handleUpdateContact(contactService, logger)))
	root.Handle("DELETE /contacts/{id}", withAuth(handleDeleteContact(contactService, logger)))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with username, email and password
	// Has to return apperrors.ErrUserAlreadyExists or
	// apperrors.ErrEmailAlreadyExists on a taken identity
	Register(ctx context.Context, arg auth.RegisterParams) (models.User, error)

	// Login with username and password, issuing a token pair
	// Has to return apperrors.ErrBadCredentials or apperrors.ErrEmailNotConfirmed
	Login(ctx context.Context, username string, password string, ip string, userAgent string) (models.TokenPair, error)

	// Rotate a refresh token
	// Spent or unknown tokens: apperrors.ErrRefreshTokenInvalid
	Refresh(ctx context.Context, refresh string, ip string, userAgent string) (models.TokenPair, error)

	// Blacklist the access token and revoke the refresh record
	Logout(ctx context.Context, accessToken string, refresh string) error

	// Map a bearer access token to its user
	ResolveUser(ctx context.Context, accessToken string) (models.User, error)
}

type userService interface {
	ConfirmEmailToken(ctx context.Context, token string) (alreadyConfirmed bool, err error)
	RequestEmailConfirmation(ctx context.Context, email string) (alreadyConfirmed bool, err error)
	UpdateAvatar(ctx context.Context, email string, url string) (models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token string, newPassword string) error
}

type contactService interface {
	Create(ctx context.Context, user models.User, arg repository.ContactParams) (models.Contact, error)
	Get(ctx context.Context, user models.User, contactID int64) (models.Contact, error)
	List(ctx context.Context, user models.User, search string, limit int, offset int) ([]models.Contact, error)
	Update(ctx context.Context, user models.User, contactID int64, arg repository.ContactParams) (models.Contact, error)
	Delete(ctx context.Context, user models.User, contactID int64) error
	UpcomingBirthdays(ctx context.Context, user models.User, daysAhead int) ([]models.Contact, error)
}

// clientIP strips the port from the remote address
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
