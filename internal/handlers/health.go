package handlers

import (
	"context"
	"net/http"

	"github.com/contactly/backend/internal/handlers/render"
	"github.com/contactly/backend/internal/logger"
)

// dbPinger is the readiness surface of the connection pool
type dbPinger interface {
	Ping(ctx context.Context) error
}

func handleHealthcheck(db dbPinger, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			l.Error("Healthcheck database ping failed", "error", err)
			render.ServiceError(w, "Database is not configured correctly", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Message: "Service is healthy"})
	})
}
