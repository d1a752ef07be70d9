package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daily-diet-backend/internal/models"
	"daily-diet-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UserStore is the persistence the user and session services need
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.User, error)
}

// UserService handles user-related business logic
type UserService struct {
	users    UserStore
	sessions *SessionService
}

// NewUserService creates a new user service
func NewUserService(users UserStore, sessions *SessionService) *UserService {
	return &UserService{
		users:    users,
		sessions: sessions,
	}
}

// Registration is the outcome of Register. Token is set only when a new
// session cookie has to be sent to the client.
type Registration struct {
	User  *models.User
	Token string
}

// Register creates a user. A presented session token is reused when it is
// valid and not yet bound to another user; otherwise a new session is issued.
func (s *UserService) Register(ctx context.Context, in NewUser, presentedToken string) (*Registration, error) {
	_, err := s.users.GetByEmail(ctx, in.Email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	sessionID, err := s.reusableSession(ctx, presentedToken)
	if err != nil {
		return nil, err
	}

	var token string
	if sessionID == "" {
		sessionID, token, err = s.newSession()
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Email:     in.Email,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrSessionExists) && token == "" {
		// another registration bound the presented session first
		log.Debug().Str("email", in.Email).Msg("Presented session taken concurrently, issuing a new one")
		user.SessionID, token, err = s.newSession()
		if err != nil {
			return nil, err
		}
		err = s.users.Create(ctx, user)
	}
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &Registration{User: user, Token: token}, nil
}

// newSession generates a session id and its signed token
func (s *UserService) newSession() (string, string, error) {
	sessionID := uuid.New().String()
	token, err := s.sessions.Issue(sessionID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue session: %w", err)
	}
	return sessionID, token, nil
}

// reusableSession returns the session id of presentedToken if it can be bound
// to a new user, or "" if a fresh session is needed.
func (s *UserService) reusableSession(ctx context.Context, presentedToken string) (string, error) {
	if presentedToken == "" {
		return "", nil
	}

	sessionID, err := s.sessions.Parse(presentedToken)
	if err != nil {
		log.Debug().Err(err).Msg("Ignoring invalid session cookie on registration")
		return "", nil
	}

	_, err = s.users.GetBySessionID(ctx, sessionID)
	switch {
	case err == nil:
		return "", nil
	case errors.Is(err, repository.ErrNotFound):
		return sessionID, nil
	default:
		return "", fmt.Errorf("failed to check session: %w", err)
	}
}

// ListUsers returns every user
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// GetUser returns the user with id, or nil if there is none
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
