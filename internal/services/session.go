package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daily-diet-backend/internal/models"
	"daily-diet-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims is the payload of the sessionId cookie
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionService issues session cookies and resolves them to users
type SessionService struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(users UserStore, secret string, ttl time.Duration) *SessionService {
	return &SessionService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of an issued session cookie
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token carrying sessionID
func (s *SessionService) Issue(sessionID string) (string, error) {
	now := s.now()
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return tokenString, nil
}

// Parse verifies a token and returns the session id it carries
func (s *SessionService) Parse(tokenString string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}
	if claims.SessionID == "" {
		return "", fmt.Errorf("session id not found in token")
	}
	return claims.SessionID, nil
}

// Resolve maps a raw cookie value to its user. Missing, invalid, expired or
// unknown tokens all yield ErrUnauthorized.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	sessionID, err := s.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	user, err := s.users.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	return user, nil
}
