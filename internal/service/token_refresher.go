package service

import (
	"context"
	"time"

	"go-auth-service/internal/model"
)

// TokenRefresher overwrites a session row's token string with a newly
// issued one. It never allocates a new row.
type TokenRefresher struct {
	codec  *TokenCodec
	tokens TokenStore
	ttl    time.Duration
}

func NewTokenRefresher(codec *TokenCodec, tokens TokenStore, ttl time.Duration) *TokenRefresher {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenRefresher{codec: codec, tokens: tokens, ttl: ttl}
}

// Refresh replaces row.Token for user. The write is conditional on the row
// still holding row.Token; a concurrent refresh that landed first makes this
// call fail with model.ErrTokenConflict and write nothing.
func (r *TokenRefresher) Refresh(ctx context.Context, row model.Token, user *model.User) (model.Token, model.Claim, error) {
	if user == nil || user.ID != row.UserID {
		return model.Token{}, model.Claim{}, model.NewUnauthorized("token does not belong to user")
	}

	next, claim, err := r.codec.issue(user.ID, r.ttl)
	if err != nil {
		return model.Token{}, model.Claim{}, err
	}

	if err := r.tokens.Replace(ctx, row.ID, row.Token, next); err != nil {
		return model.Token{}, model.Claim{}, err
	}

	row.Token = next
	return row, claim, nil
}
