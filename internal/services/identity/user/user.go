// Package user models identity profile records.
//
// Profiles are owned by the identity subsystem; the AI task core only reads
// them to attribute sessions and usage events.
package user

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
	"github.com/atriumhq/atrium/internal/platform/id"
)

var (
	// ErrEmptyEmail indicates a missing email address.
	ErrEmptyEmail = apperrors.New(apperrors.CodeIdentityUnauthenticated, "email is required")
	// ErrInvalidEmail indicates an email that does not match the required format.
	ErrInvalidEmail = apperrors.New(apperrors.CodeIdentityUnauthenticated, "email format is invalid")

	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Profile represents an authenticated identity record.
//
// DisplayName and AvatarURL are optional; an empty string maps to a NULL
// column in storage.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput captures the metadata needed to create a profile.
type CreateInput struct {
	DisplayName string
	Email       string
	AvatarURL   string
}

// NormalizeCreateInput trims and normalizes input before validation.
func NormalizeCreateInput(input CreateInput) (CreateInput, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" {
		return CreateInput{}, ErrEmptyEmail
	}
	if !emailPattern.MatchString(input.Email) {
		return CreateInput{}, ErrInvalidEmail
	}
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	input.AvatarURL = strings.TrimSpace(input.AvatarURL)
	return input, nil
}

// Create constructs a durable profile from validated input.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Profile, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateInput(input)
	if err != nil {
		return Profile{}, err
	}

	userID, err := idGenerator()
	if err != nil {
		return Profile{}, fmt.Errorf("generate user id: %w", err)
	}

	createdAt := now().UTC()
	return Profile{
		ID:          userID,
		DisplayName: normalized.DisplayName,
		Email:       normalized.Email,
		AvatarURL:   normalized.AvatarURL,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}
