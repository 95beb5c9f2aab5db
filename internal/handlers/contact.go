package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/contactly/backend/internal/apperrors"
	"github.com/contactly/backend/internal/handlers/render"
	"github.com/contactly/backend/internal/handlers/userctx"
	"github.com/contactly/backend/internal/logger"
	"github.com/contactly/backend/internal/models"
	"github.com/contactly/backend/internal/repository"
)

const birthdayLayout = "2006-01-02"

type contactRequest struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,max=20"`
	Birthday  string `json:"birthday" validate:"required"`
	Note      string `json:"note" validate:"max=500"`
}

func (cr contactRequest) toParams() (repository.ContactParams, error) {
	birthday, err := time.Parse(birthdayLayout, cr.Birthday)
	if err != nil {
		return repository.ContactParams{}, err
	}

	return repository.ContactParams{
		FirstName: cr.FirstName,
		LastName:  cr.LastName,
		Email:     cr.Email,
		Phone:     cr.Phone,
		Birthday:  birthday,
		Note:      cr.Note,
	}, nil
}

type contactResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Birthday  string `json:"birthday"`
	Note      string `json:"note,omitempty"`
}

func newContactResponse(c models.Contact) contactResponse {
	return contactResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Birthday:  c.Birthday.Format(birthdayLayout),
		Note:      c.Note,
	}
}

func newContactListResponse(contacts []models.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, newContactResponse(c))
	}
	return out
}

// contactID reads the {id} path value
func contactID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func handleCreateContact(contactService contactService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[contactRequest](w, r)
		if err != nil {
			return
		}

		params, err := data.toParams()
		if err != nil {
			render.ServiceError(w, "Birthday must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		contact, err := contactService.Create(r.Context(), user, params)

		switch {
		case err == nil:
			render.JSONStatus(w, newContactResponse(contact), http.StatusCreated)
		case errors.Is(err, apperrors.ErrContactAlreadyExists):
			render.ServiceError(w, "Contact with this email already exists", http.StatusConflict)
		default:
			l.Error("Failed to create contact", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListContacts(contactService contactService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		query := r.URL.Query()
		limit, _ := strconv.Atoi(query.Get("limit"))
		offset, _ := strconv.Atoi(query.Get("offset"))

		contacts, err := contactService.List(r.Context(), user, query.Get("search"), limit, offset)
		if err != nil {
			l.Error("Failed to list contacts", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, newContactListResponse(contacts))
	})
}

func handleGetContact(contactService contactService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		id, ok := contactID(r)
		if !ok {
			render.ServiceError(w, "Contact not found", http.StatusNotFound)
			return
		}

		contact, err := contactService.Get(r.Context(), user, id)

		switch {
		case err == nil:
			render.JSON(w, newContactResponse(contact))
		case errors.Is(err, apperrors.ErrContactNotFound):
			render.ServiceError(w, "Contact not found", http.StatusNotFound)
		default:
			l.Error("Failed to get contact", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleUpdateContact(contactService contactService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		id, ok := contactID(r)
		if !ok {
			render.ServiceError(w, "Contact not found", http.StatusNotFound)
			return
		}

		data, err := render.BindAndValidate[contactRequest](w, r)
		if err != nil {
			return
		}

		params, err := data.toParams()
		if err != nil {
			render.ServiceError(w, "Birthday must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		contact, err := contactService.Update(r.Context(), user, id, params)

		switch {
		case err == nil:
			render.JSON(w, newContactResponse(contact))
		case errors.Is(err, apperrors.ErrContactNotFound):
			render.ServiceError(w, "Contact not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrContactAlreadyExists):
			render.ServiceError(w, "Contact with this email already exists", http.StatusConflict)
		default:
			l.Error("Failed to update contact", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleDeleteContact(contactService contactService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		id, ok := contactID(r)
		if !ok {
			render.ServiceError(w, "Contact not found", http.StatusNotFound)
			return
		}

		err := contactService.Delete(r.Context(), user, id)

		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, apperrors.ErrContactNotFound):
			render.ServiceError(w, "Contact not found", http.StatusNotFound)
		default:
			l.Error("Failed to delete contact", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleUpcomingBirthdays(contactService contactService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		days, _ := strconv.Atoi(r.URL.Query().Get("days"))

		contacts, err := contactService.UpcomingBirthdays(r.Context(), user, days)
		if err != nil {
			l.Error("Failed to list upcoming birthdays", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, newContactListResponse(contacts))
	})
}
