package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go-auth-service/internal/model"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 8
	maxPasswordLen = 72
	maxFullNameLen = 100
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Registration rejects malformed sign-up input. It reports the first rule
// violated as a model.ErrValidationFailed error naming the field.
type Registration struct{}

func New() Registration {
	return Registration{}
}

func (Registration) ValidateRegistration(req model.RegistrationRequest) error {
	username := strings.TrimSpace(req.Username)
	switch {
	case username == "":
		return model.NewValidationFailed("username", "username is required")
	case len(username) < minUsernameLen || len(username) > maxUsernameLen:
		return model.NewValidationFailed("username", "username must be between 3 and 32 characters")
	case !usernamePattern.MatchString(username):
		return model.NewValidationFailed("username", "username may contain only letters, digits, '.', '_' and '-'")
	}

	switch {
	case req.Password == "":
		return model.NewValidationFailed("password", "password is required")
	case utf8.RuneCountInString(req.Password) < minPasswordLen:
		return model.NewValidationFailed("password", "password must be at least 8 characters")
	case len(req.Password) > maxPasswordLen:
		return model.NewValidationFailed("password", "password must be at most 72 bytes")
	case req.Password != req.ConfirmPassword:
		return model.NewValidationFailed("confirm_password", "passwords do not match")
	}

	fullName := strings.TrimSpace(req.FullName)
	switch {
	case fullName == "":
		return model.NewValidationFailed("full_name", "full name is required")
	case utf8.RuneCountInString(fullName) > maxFullNameLen:
		return model.NewValidationFailed("full_name", "full name must be at most 100 characters")
	}

	return nil
}
