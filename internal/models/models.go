package models

import "time"

// User represents a registered user
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meal represents a meal recorded by a user
type Meal struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	WithinDiet  bool      `json:"within_diet"`
	MealTime    time.Time `json:"meal_time"`
	PhotoURL    *string   `json:"photo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Metrics is the diet summary of a user's meals
type Metrics struct {
	TotalMeals      int `json:"totalMeals"`
	BestDietStreak  int `json:"bestDietStreak"`
	MealsOutOfDiet  int `json:"mealsOutOfDiet"`
	MealsWithinDiet int `json:"mealsWithinDiet"`
}
