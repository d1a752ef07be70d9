package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"daily-diet-backend/internal/models"
	"daily-diet-backend/internal/repository"
)

// memDB is an in-memory stand-in for the Postgres repositories
type memDB struct {
	mu    sync.Mutex
	users []*models.User
	meals map[string]*models.Meal
}

func newMemDB() *memDB {
	return &memDB{meals: make(map[string]*models.Meal)}
}

type memUsers struct{ db *memDB }

func (s memUsers) Create(_ context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Email == user.Email {
			return fmt.Errorf("failed to create user: %w", repository.ErrEmailExists)
		}
		if u.SessionID == user.SessionID {
			return fmt.Errorf("failed to create user: %w", repository.ErrSessionExists)
		}
	}
	cp := *user
	s.db.users = append(s.db.users, &cp)
	return nil
}

func (s memUsers) List(_ context.Context) ([]*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	users := make([]*models.User, 0, len(s.db.users))
	for _, u := range s.db.users {
		cp := *u
		users = append(users, &cp)
	}
	return users, nil
}

func (s memUsers) find(match func(*models.User) bool) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("failed to get user: %w", repository.ErrNotFound)
}

func (s memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.ID == id })
}

func (s memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email })
}

func (s memUsers) GetBySessionID(_ context.Context, sessionID string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.SessionID == sessionID })
}

type memMeals struct{ db *memDB }

func (s memMeals) Create(_ context.Context, meal *models.Meal) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *meal
	s.db.meals[meal.ID] = &cp
	return nil
}

func (s memMeals) ListByUser(_ context.Context, userID string) ([]*models.Meal, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	meals := []*models.Meal{}
	for _, m := range s.db.meals {
		if m.UserID == userID {
			cp := *m
			meals = append(meals, &cp)
		}
	}
	sort.Slice(meals, func(i, j int) bool {
		if !meals[i].MealTime.Equal(meals[j].MealTime) {
			return meals[i].MealTime.Before(meals[j].MealTime)
		}
		return meals[i].CreatedAt.Before(meals[j].CreatedAt)
	})
	return meals, nil
}

func (s memMeals) owned(userID, id string) (*models.Meal, error) {
	m, ok := s.db.meals[id]
	if !ok || m.UserID != userID {
		return nil, fmt.Errorf("failed to get meal: %w", repository.ErrNotFound)
	}
	return m, nil
}

func (s memMeals) GetByID(_ context.Context, userID, id string) (*models.Meal, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	cp := *m
	return &cp, nil
}

func (s memMeals) Update(_ context.Context, meal *models.Meal) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, err := s.owned(meal.UserID, meal.ID)
	if err != nil {
		return err
	}
	m.Name = meal.Name
	m.Description = meal.Description
	m.WithinDiet = meal.WithinDiet
	m.MealTime = meal.MealTime
	m.UpdatedAt = meal.UpdatedAt
	return nil
}

func (s memMeals) Delete(_ context.Context, userID, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	delete(s.db.meals, id)
	return nil
}

func (s memMeals) SetPhotoURL(_ context.Context, userID, id, photoURL string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, err := s.owned(userID, id)
	if err != nil {
		return err
	}
	m.PhotoURL = &photoURL
	m.UpdatedAt = at
	return nil
}
