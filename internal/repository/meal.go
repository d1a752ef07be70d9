package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daily-diet-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const mealColumns = `id, user_id, name, description, within_diet, meal_time, photo_url, created_at, updated_at`

// MealRepository handles database operations for meals. Every query is
// filtered by the owning user.
type MealRepository struct {
	db DB
}

// NewMealRepository creates a new meal repository
func NewMealRepository(db DB) *MealRepository {
	return &MealRepository{db: db}
}

// Create creates a new meal
func (r *MealRepository) Create(ctx context.Context, meal *models.Meal) error {
	query := `
		INSERT INTO meals (id, user_id, name, description, within_diet, meal_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		meal.ID, meal.UserID, meal.Name, meal.Description, meal.WithinDiet,
		meal.MealTime, meal.CreatedAt, meal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create meal: %w", err)
	}
	return nil
}

// ListByUser retrieves the user's meals in chronological order
func (r *MealRepository) ListByUser(ctx context.Context, userID string) ([]*models.Meal, error) {
	query := `
		SELECT ` + mealColumns + `
		FROM meals
		WHERE user_id = $1
		ORDER BY meal_time ASC, created_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()

	meals := make([]*models.Meal, 0)
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		meals = append(meals, meal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meals: %w", err)
	}

	return meals, nil
}

// GetByID retrieves a meal owned by userID
func (r *MealRepository) GetByID(ctx context.Context, userID, id string) (*models.Meal, error) {
	query := `
		SELECT ` + mealColumns + `
		FROM meals
		WHERE id = $1 AND user_id = $2
	`
	meal, err := scanMeal(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("meal not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get meal: %w", err)
	}
	return meal, nil
}

// Update replaces the business fields of a meal owned by meal.UserID
func (r *MealRepository) Update(ctx context.Context, meal *models.Meal) error {
	query := `
		UPDATE meals
		SET name = $1, description = $2, within_diet = $3, meal_time = $4, updated_at = $5
		WHERE id = $6 AND user_id = $7
	`
	result, err := r.db.Exec(ctx, query,
		meal.Name, meal.Description, meal.WithinDiet, meal.MealTime, meal.UpdatedAt,
		meal.ID, meal.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update meal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("meal not found: %w", ErrNotFound)
	}
	return nil
}

// SetPhotoURL updates the photo URL of a meal owned by userID
func (r *MealRepository) SetPhotoURL(ctx context.Context, userID, id, photoURL string, at time.Time) error {
	query := `UPDATE meals SET photo_url = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`
	result, err := r.db.Exec(ctx, query, photoURL, at, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update meal photo_url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("meal not found: %w", ErrNotFound)
	}
	return nil
}

// Delete deletes a meal owned by userID
func (r *MealRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM meals WHERE id = $1 AND user_id = $2`
	result, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("meal not found: %w", ErrNotFound)
	}
	return nil
}

func scanMeal(row pgx.Row) (*models.Meal, error) {
	var meal models.Meal
	err := row.Scan(
		&meal.ID, &meal.UserID, &meal.Name, &meal.Description, &meal.WithinDiet,
		&meal.MealTime, &meal.PhotoURL, &meal.CreatedAt, &meal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &meal, nil
}
