package services

import (
	"context"
	"errors"
	"time"

	"daily-diet-backend/internal/models"
	"daily-diet-backend/internal/repository"

	"github.com/google/uuid"
)

// MealStore is the persistence the meal services need. All methods are
// scoped to the owning user.
type MealStore interface {
	MealLister
	Create(ctx context.Context, meal *models.Meal) error
	GetByID(ctx context.Context, userID, id string) (*models.Meal, error)
	Update(ctx context.Context, meal *models.Meal) error
	Delete(ctx context.Context, userID, id string) error
	SetPhotoURL(ctx context.Context, userID, id, photoURL string, at time.Time) error
}

// MealService handles meal CRUD for a resolved user
type MealService struct {
	meals   MealStore
	metrics *MetricsService
}

// NewMealService creates a new meal service
func NewMealService(meals MealStore, metrics *MetricsService) *MealService {
	return &MealService{
		meals:   meals,
		metrics: metrics,
	}
}

// List returns the user's meals in chronological order
func (s *MealService) List(ctx context.Context, userID string) ([]*models.Meal, error) {
	return s.meals.ListByUser(ctx, userID)
}

// Get returns a meal owned by the user
func (s *MealService) Get(ctx context.Context, userID, mealID string) (*models.Meal, error) {
	meal, err := s.meals.GetByID(ctx, userID, mealID)
	if err != nil {
		return nil, mapMealErr(err)
	}
	return meal, nil
}

// Create records a new meal
func (s *MealService) Create(ctx context.Context, userID string, in MealInput) (*models.Meal, error) {
	now := time.Now().UTC()
	meal := &models.Meal{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		WithinDiet:  in.WithinDiet,
		MealTime:    in.MealTime,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.meals.Create(ctx, meal); err != nil {
		return nil, err
	}

	s.metrics.Invalidate(ctx, userID)
	return meal, nil
}

// Update replaces name, description, within-diet flag and meal time of an owned meal
func (s *MealService) Update(ctx context.Context, userID, mealID string, in MealInput) error {
	meal := &models.Meal{
		ID:          mealID,
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		WithinDiet:  in.WithinDiet,
		MealTime:    in.MealTime,
		UpdatedAt:   time.Now().UTC(),
	}

	if err := s.meals.Update(ctx, meal); err != nil {
		return mapMealErr(err)
	}

	s.metrics.Invalidate(ctx, userID)
	return nil
}

// Delete removes an owned meal
func (s *MealService) Delete(ctx context.Context, userID, mealID string) error {
	if err := s.meals.Delete(ctx, userID, mealID); err != nil {
		return mapMealErr(err)
	}

	s.metrics.Invalidate(ctx, userID)
	return nil
}

func mapMealErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrMealNotFound
	}
	return err
}
