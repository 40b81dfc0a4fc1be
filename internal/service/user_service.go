package service

import (
	"context"
	"errors"
	"fmt"

	"go-auth-service/internal/model"
)

type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) List(ctx context.Context) ([]model.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.PublicUser{}, model.NewNotFound("user not found")
	}
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("get user: %w", err)
	}
	return user.Public(), nil
}
