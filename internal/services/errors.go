package services

import "errors"

var (
	// ErrUnauthorized is returned when a session token is missing or does not resolve to a user
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmailTaken is returned when registering an email that already exists
	ErrEmailTaken = errors.New("user already exists")
	// ErrMealNotFound is returned when a meal does not exist or belongs to another user
	ErrMealNotFound = errors.New("meal not found")
	// ErrPhotoUploadDisabled is returned when no S3 bucket is configured
	ErrPhotoUploadDisabled = errors.New("photo upload is not configured")
)

// ValidationError describes a rejected request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
