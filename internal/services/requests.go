package services

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateUserRequest is the body of POST /users
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUser is a validated registration
type NewUser struct {
	Name  string
	Email string
}

// ParseCreateUser validates a registration request
func ParseCreateUser(req CreateUserRequest) (NewUser, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return NewUser{}, invalid("name", "is required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return NewUser{}, invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return NewUser{}, invalid("email", "must be a valid email address")
	}

	return NewUser{Name: name, Email: email}, nil
}

// MealRequest is the body of POST /meals and PUT /meals/{mealId}
type MealRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	MealTime    string  `json:"meal_time"`
	WithinDiet  *bool   `json:"within_diet"`
}

// MealInput is a validated meal body
type MealInput struct {
	Name        string
	Description *string
	MealTime    time.Time
	WithinDiet  bool
}

// ParseMealInput validates a meal body. Description is optional; blank
// descriptions are stored as NULL.
func ParseMealInput(req MealRequest) (MealInput, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return MealInput{}, invalid("name", "is required")
	}

	if req.MealTime == "" {
		return MealInput{}, invalid("meal_time", "is required")
	}
	mealTime, err := time.Parse(time.RFC3339Nano, req.MealTime)
	if err != nil {
		return MealInput{}, invalid("meal_time", "must be an ISO 8601 datetime")
	}

	if req.WithinDiet == nil {
		return MealInput{}, invalid("within_diet", "is required")
	}

	var description *string
	if req.Description != nil {
		if d := strings.TrimSpace(*req.Description); d != "" {
			description = &d
		}
	}

	return MealInput{
		Name:        name,
		Description: description,
		MealTime:    mealTime.UTC(),
		WithinDiet:  *req.WithinDiet,
	}, nil
}

// ParseMealID validates a meal identifier path parameter
func ParseMealID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", invalid("mealId", "must be a UUID")
	}
	return id.String(), nil
}

// PhotoUploadRequest is the body of POST /meals/{mealId}/photo
type PhotoUploadRequest struct {
	ContentType string `json:"content_type"`
}

var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ParsePhotoUpload validates the content type and returns it with its file extension
func ParsePhotoUpload(req PhotoUploadRequest) (contentType, ext string, err error) {
	contentType = req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	ext, ok := photoExtensions[contentType]
	if !ok {
		return "", "", invalid("content_type", "must be image/jpeg, image/png or image/webp")
	}
	return contentType, ext, nil
}
