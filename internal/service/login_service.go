package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-auth-service/internal/event"
	"go-auth-service/internal/model"
)

type LoginOutcome int

const (
	OutcomeSessionCreated LoginOutcome = iota + 1
	OutcomeSessionReused
	OutcomeSessionRefreshed
)

const MessageSessionCreated = "session created"

type LoginResult struct {
	Outcome     LoginOutcome
	Message     string
	AccessToken string
	User        model.User
}

type LoginService struct {
	users    UserStore
	tokens   TokenStore
	hasher   *PasswordHasher
	codec    *TokenCodec
	verifier *TokenVerifier
	ttl      time.Duration
	bus      event.Bus
}

func NewLoginService(
	users UserStore,
	tokens TokenStore,
	hasher *PasswordHasher,
	codec *TokenCodec,
	verifier *TokenVerifier,
	ttl time.Duration,
	bus event.Bus,
) *LoginService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if bus == nil {
		bus = event.Nop{}
	}
	return &LoginService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		codec:    codec,
		verifier: verifier,
		ttl:      ttl,
		bus:      bus,
	}
}

// Login checks the credentials and returns the user's session token,
// creating the session on first login and refreshing it in place once it has
// expired. While the session is live the same token is returned.
func (s *LoginService) Login(ctx context.Context, username string, password string) (LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		s.failed(username, "user not found")
		return LoginResult{}, model.NewNotFound("user not found")
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		s.failed(username, "incorrect password")
		return LoginResult{}, model.NewUnauthorized("incorrect password")
	}

	row, err := s.tokens.FindByUserID(ctx, user.ID)
	if errors.Is(err, model.ErrTokenNotFound) {
		return s.createSession(ctx, user)
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	verification, err := s.verifier.Verify(ctx, row, &user)
	if errors.Is(err, model.ErrTokenConflict) {
		// A concurrent login refreshed this row first; adopt its token.
		row, err = s.tokens.FindByUserID(ctx, user.ID)
		if err != nil {
			return LoginResult{}, fmt.Errorf("login: reload session: %w", err)
		}
		verification, err = s.verifier.Verify(ctx, row, &user)
		if errors.Is(err, model.ErrTokenConflict) {
			return LoginResult{}, model.NewConflict("session is being refreshed concurrently, retry")
		}
	}
	if err != nil {
		s.failed(username, err.Error())
		return LoginResult{}, err
	}

	result := LoginResult{
		Outcome:     OutcomeSessionReused,
		Message:     verification.Message,
		AccessToken: verification.Token.Token,
		User:        user,
	}
	eventType := event.TypeSessionReused
	if verification.State == StateExpiredRefreshable {
		result.Outcome = OutcomeSessionRefreshed
		eventType = event.TypeSessionRefreshed
	}

	slog.Info("login succeeded", "user_id", user.ID, "state", verification.State.String())
	s.bus.Publish(event.Event{Type: eventType, UserID: user.ID, Username: user.Username})
	return result, nil
}

func (s *LoginService) createSession(ctx context.Context, user model.User) (LoginResult, error) {
	token, err := s.codec.Encode(user.ID, s.ttl)
	if err != nil {
		return LoginResult{}, err
	}

	if _, err := s.tokens.Create(ctx, model.Token{Token: token, UserID: user.ID}); err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	slog.Info("session created", "user_id", user.ID)
	s.bus.Publish(event.Event{Type: event.TypeSessionCreated, UserID: user.ID, Username: user.Username})

	return LoginResult{
		Outcome:     OutcomeSessionCreated,
		Message:     MessageSessionCreated,
		AccessToken: token,
		User:        user,
	}, nil
}

func (s *LoginService) failed(username string, reason string) {
	slog.Warn("login failed", "username", username, "reason", reason)
	s.bus.Publish(event.Event{Type: event.TypeLoginFailed, Username: username, Detail: reason})
}
