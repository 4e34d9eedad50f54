package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/services"
	"github.com/username/finflow/backend/src/utils"
)

// sendServiceError maps a service error to its HTTP status. Storage and unexpected
// errors are logged here and reach the client only as a generic message.
func sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		utils.SendJSONError(w, validationErr.Message, http.StatusBadRequest)
	case errors.Is(err, services.ErrUnauthenticated):
		utils.SendJSONError(w, "Invalid or expired credentials", http.StatusUnauthorized)
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, "Resource not found", http.StatusNotFound)
	case errors.Is(err, services.ErrConflict):
		utils.SendJSONError(w, "Username or email already registered", http.StatusConflict)
	case errors.Is(err, context.Canceled):
		log.Info("Request cancelled by client", "path", r.URL.Path)
	case errors.Is(err, services.ErrStorage):
		log.Error("Storage failure", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "database error", http.StatusInternalServerError)
	default:
		log.Error("Unhandled error", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
