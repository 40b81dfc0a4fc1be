package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go-auth-service/internal/event"
	"go-auth-service/internal/model"
)

type RegistrationValidator interface {
	ValidateRegistration(req model.RegistrationRequest) error
}

type RegistrationService struct {
	users     UserStore
	hasher    *PasswordHasher
	validator RegistrationValidator
	bus       event.Bus
}

func NewRegistrationService(users UserStore, hasher *PasswordHasher, validator RegistrationValidator, bus event.Bus) *RegistrationService {
	if bus == nil {
		bus = event.Nop{}
	}
	return &RegistrationService{users: users, hasher: hasher, validator: validator, bus: bus}
}

// Register creates a regular-tier user.
func (s *RegistrationService) Register(ctx context.Context, req model.RegistrationRequest) (model.User, error) {
	if err := s.validator.ValidateRegistration(req); err != nil {
		return model.User{}, err
	}

	user, err := s.create(ctx, strings.TrimSpace(req.Username), req.Password, strings.TrimSpace(req.FullName), model.RoleRegular)
	if err != nil {
		return model.User{}, err
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	s.bus.Publish(event.Event{Type: event.TypeUserRegistered, UserID: user.ID, Username: user.Username})
	return user, nil
}

// EnsureAdmin creates an admin account unless the username is already
// taken. It reports whether a user was created.
func (s *RegistrationService) EnsureAdmin(ctx context.Context, username string, password string, fullName string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, errors.New("bootstrap admin username and password are required")
	}

	_, err := s.create(ctx, username, password, strings.TrimSpace(fullName), model.RoleAdmin)
	if errors.Is(err, model.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}

	slog.Info("bootstrap admin created", "username", username)
	return true, nil
}

func (s *RegistrationService) create(ctx context.Context, username string, password string, fullName string, role model.Role) (model.User, error) {
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	if exists {
		return model.User{}, model.NewConflict("username already registered")
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.users.Create(ctx, model.User{
		Username:       username,
		HashedPassword: hashed,
		Role:           role,
		FullName:       fullName,
	})
	if errors.Is(err, model.ErrUserAlreadyExists) {
		return model.User{}, model.NewConflict("username already registered")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}

	return user, nil
}
