package handlers

import (
	"errors"
	"net/http"

	"daily-diet-backend/internal/middleware"
	"daily-diet-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PhotoHandler handles meal photo uploads
type PhotoHandler struct {
	photoService   *services.PhotoService
	sessionService *services.SessionService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService, sessionService *services.SessionService) *PhotoHandler {
	return &PhotoHandler{
		photoService:   photoService,
		sessionService: sessionService,
	}
}

// UploadMealPhoto handles POST /meals/{mealId}/photo
func (h *PhotoHandler) UploadMealPhoto(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.sessionService)
	if user == nil {
		return
	}

	mealID, err := services.ParseMealID(chi.URLParam(r, "mealId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var req services.PhotoUploadRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	contentType, ext, err := services.ParsePhotoUpload(req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response, err := h.photoService.CreateUploadURL(r.Context(), user.ID, mealID, contentType, ext)
	if err != nil {
		if !errors.Is(err, services.ErrMealNotFound) && !errors.Is(err, services.ErrPhotoUploadDisabled) {
			log.Error().
				Err(err).
				Str("user_id", user.ID).
				Str("meal_id", mealID).
				Msg("Failed to generate pre-signed URL")
		}
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("meal_id", mealID).
		Str("photo_url", response.PhotoURL).
		Msg("Pre-signed URL generated")

	middleware.RespondJSON(w, http.StatusOK, response)
}
