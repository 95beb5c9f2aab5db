package handlers

import (
	"errors"
	"net/http"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/handlers/render"
	"github.com/contactly/backend/internal/handlers/userctx"
	"github.com/contactly/backend/internal/logger"
	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/service/upload"
)

const maxAvatarBytes = 5 << 20 // 5 MiB

func handleUserMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, models.SnapshotOf(user))
	})
}

func handleConfirmEmail(userService userService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")

		alreadyConfirmed, err := userService.ConfirmEmailToken(r.Context(), token)

		switch {
		case err == nil && alreadyConfirmed:
			render.JSON(w, response{Message: "Your email is already confirmed"})
		case err == nil:
			render.JSON(w, response{Message: "Email confirmed"})
		case errors.Is(err, apperrors.ErrEmailTokenInvalid):
			render.ServiceError(w, "Invalid token for email verification", http.StatusBadRequest)
		default:
			l.Error("Failed to confirm email", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleRequestEmail(userService userService, l logger.Logger) http.Handler {
	type request struct {
		Email string `json:"email" validate:"required,email"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		alreadyConfirmed, err := userService.RequestEmailConfirmation(r.Context(), data.Email)

		switch {
		case err == nil && alreadyConfirmed:
			render.JSON(w, response{Message: "Your email is already confirmed"})
		case err == nil, errors.Is(err, apperrors.ErrUserNotFound):
			// Same answer for unknown addresses, the endpoint must not
			// reveal whether an email is registered
			render.JSON(w, response{Message: "Check your email for confirmation"})
		default:
			l.Error("Failed to request email confirmation", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleUpdateAvatar(userService userService, uploader upload.FileUploader, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if user.Role != models.RoleAdmin {
			render.ServiceError(w, "Only admins can change avatars", http.StatusForbidden)
			return
		}

		if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
			render.ServiceError(w, "Invalid multipart form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			render.ServiceError(w, "File is required", http.StatusBadRequest)
			return
		}
		defer file.Close() //nolint:errcheck

		url, err := uploader.Upload(r.Context(), user.Username, header.Filename, file)
		if err != nil {
			l.Error("Failed to store avatar", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		updated, err := userService.UpdateAvatar(r.Context(), user.Email, url)
		if err != nil {
			l.Error("Failed to update avatar", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, models.SnapshotOf(updated))
	})
}

func handleRequestPasswordReset(userService userService, l logger.Logger) http.Handler {
	type request struct {
		Email string `json:"email" validate:"required,email"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = userService.RequestPasswordReset(r.Context(), data.Email)

		switch {
		case err == nil, errors.Is(err, apperrors.ErrUserNotFound):
			// Same answer for unknown addresses
			render.JSON(w, response{Message: "Check your email for the reset link"})
		case errors.Is(err, apperrors.ErrCacheUnavailable):
			render.ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
		default:
			l.Error("Failed to request password reset", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleResetPassword(userService userService, l logger.Logger) http.Handler {
	type request struct {
		Password string `json:"password" validate:"required,min=8"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = userService.ResetPassword(r.Context(), token, data.Password)

		switch {
		case err == nil:
			render.JSON(w, response{Message: "Password updated"})
		case errors.Is(err, apperrors.ErrResetTokenInvalid):
			render.ServiceError(w, "Invalid or expired reset token", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrCacheUnavailable):
			render.ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
		default:
			l.Error("Failed to reset password", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
