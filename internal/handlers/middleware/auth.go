package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/handlers/render"
	"github.com/contactly/backend/internal/handlers/userctx"
	"github.com/contactly/backend/internal/models"
)

type authService interface {
	ResolveUser(ctx context.Context, accessToken string) (models.User, error)
}

// BearerToken extracts the token from the Authorization header
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}

	return token, true
}

// AuthMiddleware resolves the bearer token to a user and stores it in the
// request context. A cache fault answers 503: the blacklist can't be checked,
// so the token is not accepted
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				render.ServiceError(w, "Not authenticated", http.StatusUnauthorized)
				return
			}

			user, err := as.ResolveUser(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperrors.ErrCacheUnavailable) {
					render.ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
					return
				}
				render.ServiceError(w, "Could not validate credentials", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
