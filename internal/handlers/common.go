package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"daily-diet-backend/internal/middleware"
	"daily-diet-backend/internal/models"
	"daily-diet-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// respondServiceError maps service errors onto HTTP responses
func respondServiceError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.RespondError(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrUnauthorized):
		middleware.RespondError(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, services.ErrMealNotFound):
		middleware.RespondError(w, "Meal not found", http.StatusNotFound)
	case errors.Is(err, services.ErrEmailTaken):
		middleware.RespondError(w, "User already exists", http.StatusBadRequest)
	case errors.Is(err, services.ErrPhotoUploadDisabled):
		middleware.RespondError(w, "Photo upload is not available", http.StatusServiceUnavailable)
	default:
		middleware.RespondError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON reads the request body into dst, answering 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// authenticate resolves the session cookie of r. On failure the response has
// already been written and nil is returned.
func authenticate(w http.ResponseWriter, r *http.Request, sessions *services.SessionService) *models.User {
	user, err := sessions.Resolve(r.Context(), middleware.SessionToken(r))
	if err != nil {
		if !errors.Is(err, services.ErrUnauthorized) {
			log.Error().Err(err).Msg("Failed to resolve session")
		}
		respondServiceError(w, err)
		return nil
	}
	return user
}
