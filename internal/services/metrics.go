package services

import (
	"context"
	"fmt"

	"daily-diet-backend/internal/cache"
	"daily-diet-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Aggregate summarises meals ordered by meal time ascending. BestDietStreak
// is the longest contiguous run of within-diet meals.
func Aggregate(meals []*models.Meal) models.Metrics {
	var m models.Metrics
	current := 0
	for _, meal := range meals {
		m.TotalMeals++
		if meal.WithinDiet {
			m.MealsWithinDiet++
			current++
			m.BestDietStreak = max(m.BestDietStreak, current)
		} else {
			m.MealsOutOfDiet++
			current = 0
		}
	}
	return m
}

// MealLister returns a user's meals in chronological order
type MealLister interface {
	ListByUser(ctx context.Context, userID string) ([]*models.Meal, error)
}

// MetricsService computes per-user diet metrics, backed by an optional cache
type MetricsService struct {
	meals MealLister
	cache *cache.MetricsCache
}

// NewMetricsService creates a new metrics service. metricsCache may be nil.
func NewMetricsService(meals MealLister, metricsCache *cache.MetricsCache) *MetricsService {
	return &MetricsService{
		meals: meals,
		cache: metricsCache,
	}
}

// Get returns the metrics of a user. A freshly computed result is cached
// only if no meal write invalidated the user while it was being computed.
func (s *MetricsService) Get(ctx context.Context, userID string) (*models.Metrics, error) {
	cached, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Metrics cache read failed")
	} else if ok {
		return cached, nil
	}

	gen, genErr := s.cache.Generation(ctx, userID)
	if genErr != nil {
		log.Warn().Err(genErr).Str("user_id", userID).Msg("Metrics generation read failed")
	}

	meals, err := s.meals.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load meals: %w", err)
	}

	m := Aggregate(meals)

	if s.cache != nil && genErr == nil {
		stored, err := s.cache.SetIfGeneration(ctx, userID, gen, &m)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Metrics cache write failed")
		} else if !stored {
			log.Debug().Str("user_id", userID).Msg("Meals changed while computing metrics, not caching")
		}
	}

	return &m, nil
}

// Invalidate drops cached metrics after the user's meals changed
func (s *MetricsService) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Metrics cache invalidation failed")
	}
}
