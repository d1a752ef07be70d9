package services

import (
	"context"
	"time"

	"daily-diet-backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) List(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *MockUserStore) GetBySessionID(ctx context.Context, sessionID string) (*models.User, error) {
	return m.user(m.Called(ctx, sessionID))
}

func (m *MockUserStore) user(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockMealStore struct {
	mock.Mock
}

func (m *MockMealStore) Create(ctx context.Context, meal *models.Meal) error {
	return m.Called(ctx, meal).Error(0)
}

func (m *MockMealStore) ListByUser(ctx context.Context, userID string) ([]*models.Meal, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Meal), args.Error(1)
}

func (m *MockMealStore) GetByID(ctx context.Context, userID, id string) (*models.Meal, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Meal), args.Error(1)
}

func (m *MockMealStore) Update(ctx context.Context, meal *models.Meal) error {
	return m.Called(ctx, meal).Error(0)
}

func (m *MockMealStore) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockMealStore) SetPhotoURL(ctx context.Context, userID, id, photoURL string, at time.Time) error {
	return m.Called(ctx, userID, id, photoURL, at).Error(0)
}
