package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthErrorUnwrapsToKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("login: %w", NewUnauthorized("incorrect password"))

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrForbidden))

	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
	assert.Equal(t, "incorrect password", authErr.Message)
}

func TestAuthErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "not found: user not found", NewNotFound("user not found").Error())
	assert.Equal(t, "validation failed: too short (password)", NewValidationFailed("password", "too short").Error())
}
