package handlers

import (
	"errors"
	"net/http"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/handlers/middleware"
	"github.com/contactly/backend/internal/handlers/render"
	"github.com/contactly/backend/internal/logger"
	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/service/auth"
)

// tokenPairResponse is the body of every endpoint that issues tokens
type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func newTokenPairResponse(pair models.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		TokenType:    "bearer",
	}
}

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required,min=2,max=50"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, err := authService.Register(r.Context(), auth.RegisterParams{
			Username: data.Username,
			Email:    data.Email,
			Password: data.Password,
		})

		switch {
		case err == nil:
			render.JSONStatus(w, models.SnapshotOf(user), http.StatusCreated)
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "Account already exists", http.StatusConflict)
		case errors.Is(err, apperrors.ErrEmailAlreadyExists):
			render.ServiceError(w, "Account already exists", http.StatusConflict)
		default:
			l.Error("Failed to register user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

// handleLogin reads form-encoded credentials, matching OAuth2 password flow
// clients that post username/password as a form
func handleLogin(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			render.ServiceError(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		username := r.PostFormValue("username")
		password := r.PostFormValue("password")
		if username == "" || password == "" {
			render.ServiceError(w, "Username and password are required", http.StatusBadRequest)
			return
		}

		pair, err := authService.Login(r.Context(), username, password, clientIP(r), r.UserAgent())

		switch {
		case err == nil:
			render.JSON(w, newTokenPairResponse(pair))
		case errors.Is(err, apperrors.ErrBadCredentials):
			render.ServiceError(w, "Invalid username or password", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrEmailNotConfirmed):
			render.ServiceError(w, "Email not confirmed", http.StatusUnauthorized)
		default:
			l.Error("Failed to login user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleTokenRefresh(authService authService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Refresh(r.Context(), data.RefreshToken, clientIP(r), r.UserAgent())

		switch {
		case err == nil:
			render.JSON(w, newTokenPairResponse(pair))
		case errors.Is(err, apperrors.ErrRefreshTokenInvalid):
			render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
		default:
			l.Error("Failed to refresh tokens", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogout(authService authService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken, ok := middleware.BearerToken(r)
		if !ok {
			render.ServiceError(w, "Not authenticated", http.StatusUnauthorized)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = authService.Logout(r.Context(), accessToken, data.RefreshToken)

		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, apperrors.ErrAccessTokenInvalid):
			render.ServiceError(w, "Could not validate credentials", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrCacheUnavailable):
			render.ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
		default:
			l.Error("Failed to logout user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
