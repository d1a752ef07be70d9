package handlers

import (
	"context"
	"errors"
	"net/http"

	"daily-diet-backend/internal/middleware"
	"daily-diet-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MealHandler handles meal-related HTTP requests
type MealHandler struct {
	mealService    *services.MealService
	sessionService *services.SessionService
	wsHub          *services.WSHub
}

// NewMealHandler creates a new meal handler
func NewMealHandler(mealService *services.MealService, sessionService *services.SessionService, wsHub *services.WSHub) *MealHandler {
	return &MealHandler{
		mealService:    mealService,
		sessionService: sessionService,
		wsHub:          wsHub,
	}
}

// ListMeals handles GET /meals
func (h *MealHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.sessionService)
	if user == nil {
		return
	}

	meals, err := h.mealService.List(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list meals")
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]interface{}{"meals": meals})
}

// GetMeal handles GET /meals/{mealId}
func (h *MealHandler) GetMeal(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.sessionService)
	if user == nil {
		return
	}

	mealID, err := services.ParseMealID(chi.URLParam(r, "mealId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	meal, err := h.mealService.Get(r.Context(), user.ID, mealID)
	if err != nil {
		h.logFailure(err, user.ID, mealID, "Failed to get meal")
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]interface{}{"meal": meal})
}

// CreateMeal handles POST /meals
func (h *MealHandler) CreateMeal(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.sessionService)
	if user == nil {
		return
	}

	var req services.MealRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := services.ParseMealInput(req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	meal, err := h.mealService.Create(r.Context(), user.ID, in)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to create meal")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("meal_id", meal.ID).
		Bool("within_diet", meal.WithinDiet).
		Msg("Meal created")

	h.notifyMetrics(r.Context(), user.ID)
	w.WriteHeader(http.StatusCreated)
}

// UpdateMeal handles PUT /meals/{mealId}
func (h *MealHandler) UpdateMeal(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.sessionService)
	if user == nil {
		return
	}

	mealID, err := services.ParseMealID(chi.URLParam(r, "mealId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var req services.MealRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := services.ParseMealInput(req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := h.mealService.Update(r.Context(), user.ID, mealID, in); err != nil {
		h.logFailure(err, user.ID, mealID, "Failed to update meal")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", user.ID).Str("meal_id", mealID).Msg("Meal updated")

	h.notifyMetrics(r.Context(), user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMeal handles DELETE /meals/{mealId}
func (h *MealHandler) DeleteMeal(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.sessionService)
	if user == nil {
		return
	}

	mealID, err := services.ParseMealID(chi.URLParam(r, "mealId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := h.mealService.Delete(r.Context(), user.ID, mealID); err != nil {
		h.logFailure(err, user.ID, mealID, "Failed to delete meal")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", user.ID).Str("meal_id", mealID).Msg("Meal deleted")

	h.notifyMetrics(r.Context(), user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// notifyMetrics pushes fresh metrics to the user's WebSocket, if any.
// The write already succeeded, so failures are only logged.
func (h *MealHandler) notifyMetrics(ctx context.Context, userID string) {
	if h.wsHub == nil {
		return
	}
	if err := h.wsHub.NotifyMetrics(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to push metrics update")
	}
}

func (h *MealHandler) logFailure(err error, userID, mealID, msg string) {
	if errors.Is(err, services.ErrMealNotFound) {
		return
	}
	log.Error().Err(err).Str("user_id", userID).Str("meal_id", mealID).Msg(msg)
}
