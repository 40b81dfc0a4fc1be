package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-auth-service/internal/event"
	"go-auth-service/internal/model"
)

// AuthorizationGuard resolves the acting user behind a bearer token.
//
// Verification runs before the owning user is looked up, so an expired token
// presented here is never refreshed: the caller has to log in again.
type AuthorizationGuard struct {
	users    UserStore
	tokens   TokenStore
	verifier *TokenVerifier
	bus      event.Bus
}

func NewAuthorizationGuard(users UserStore, tokens TokenStore, verifier *TokenVerifier, bus event.Bus) *AuthorizationGuard {
	if bus == nil {
		bus = event.Nop{}
	}
	return &AuthorizationGuard{users: users, tokens: tokens, verifier: verifier, bus: bus}
}

func (g *AuthorizationGuard) ResolveCurrentUser(ctx context.Context, bearer string) (model.User, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return model.User{}, model.NewUnauthorized("token not found")
	}

	row, err := g.tokens.FindByToken(ctx, bearer)
	if errors.Is(err, model.ErrTokenNotFound) {
		return model.User{}, model.NewUnauthorized("token not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("resolve current user: %w", err)
	}

	verification, err := g.verifier.Verify(ctx, row, nil)
	if err != nil {
		g.bus.Publish(event.Event{Type: event.TypeAccessDenied, UserID: row.UserID, Detail: err.Error()})
		return model.User{}, err
	}

	user, err := g.users.FindByID(ctx, verification.Claim.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, model.NewUnauthorized("user not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("resolve current user: %w", err)
	}

	return user, nil
}

// RequireAdmin admits only the top tier.
func RequireAdmin(user model.User) error {
	switch user.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleElevated, model.RoleRegular:
		return model.NewForbidden("admin role required")
	default:
		return model.NewForbidden("unknown role")
	}
}

// RequireElevated admits every tier above the base one.
func RequireElevated(user model.User) error {
	switch user.Role {
	case model.RoleAdmin, model.RoleElevated:
		return nil
	case model.RoleRegular:
		return model.NewForbidden("elevated role required")
	default:
		return model.NewForbidden("unknown role")
	}
}
