package handlers

import (
	"errors"
	"net/http"

	"daily-diet-backend/internal/middleware"
	"daily-diet-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService    *services.UserService
	sessionService *services.SessionService
	metricsService *services.MetricsService
	secureCookie   bool
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	userService *services.UserService,
	sessionService *services.SessionService,
	metricsService *services.MetricsService,
	secureCookie bool,
) *UserHandler {
	return &UserHandler{
		userService:    userService,
		sessionService: sessionService,
		metricsService: metricsService,
		secureCookie:   secureCookie,
	}
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := services.ParseCreateUser(req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	reg, err := h.userService.Register(r.Context(), in, middleware.SessionToken(r))
	if err != nil {
		if !errors.Is(err, services.ErrEmailTaken) {
			log.Error().Err(err).Str("email", in.Email).Msg("Failed to create user")
		}
		respondServiceError(w, err)
		return
	}

	if reg.Token != "" {
		middleware.SetSessionCookie(w, reg.Token, h.sessionService.TTL(), h.secureCookie)
	}

	log.Info().
		Str("user_id", reg.User.ID).
		Bool("new_session", reg.Token != "").
		Msg("User created")

	w.WriteHeader(http.StatusCreated)
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// GetUser handles GET /users/{id}; unknown ids answer {"user": null}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("Failed to get user")
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// GetMetrics handles GET /users/metrics
func (h *UserHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.sessionService)
	if user == nil {
		return
	}

	metrics, err := h.metricsService.Get(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to compute metrics")
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, metrics)
}
