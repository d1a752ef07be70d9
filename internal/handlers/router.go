package handlers

import (
	"net/http"

	"daily-diet-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Routes bundles the handlers mounted by NewRouter. Optional parts may be nil.
type Routes struct {
	Users       *UserHandler
	Meals       *MealHandler
	Photos      *PhotoHandler
	WebSocket   *WebSocketHandler
	Health      http.HandlerFunc
	RateLimiter *middleware.RateLimiter
}

// NewRouter builds the HTTP router
func NewRouter(routes Routes) chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS)

	if routes.Health != nil {
		r.Get("/healthz", routes.Health)
	}
	r.Handle("/metrics", middleware.MetricsHandler())

	r.Group(func(r chi.Router) {
		if routes.RateLimiter != nil {
			r.Use(routes.RateLimiter.Handler)
		}

		r.Route("/users", func(r chi.Router) {
			r.Post("/", routes.Users.CreateUser)
			r.Get("/", routes.Users.ListUsers)
			r.Get("/metrics", routes.Users.GetMetrics)
			r.Get("/{id}", routes.Users.GetUser)
		})

		r.Route("/meals", func(r chi.Router) {
			r.Post("/", routes.Meals.CreateMeal)
			r.Get("/", routes.Meals.ListMeals)
			r.Get("/{mealId}", routes.Meals.GetMeal)
			r.Put("/{mealId}", routes.Meals.UpdateMeal)
			r.Delete("/{mealId}", routes.Meals.DeleteMeal)
			if routes.Photos != nil {
				r.Post("/{mealId}/photo", routes.Photos.UploadMealPhoto)
			}
		})

		if routes.WebSocket != nil {
			r.Get("/ws", routes.WebSocket.HandleWebSocket)
		}
	})

	return r
}
