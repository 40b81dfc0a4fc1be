package service

import (
	"context"
	"errors"
	"fmt"

	"go-auth-service/internal/model"
)

// VerifyState is the terminal state of one verification.
type VerifyState int

const (
	StateValid VerifyState = iota + 1
	StateExpiredRefreshable
	StateExpiredUnrefreshable
	StateRejected
)

func (s VerifyState) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpiredRefreshable:
		return "expired_refreshable"
	case StateExpiredUnrefreshable:
		return "expired_unrefreshable"
	case StateRejected:
		return "rejected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const (
	MessageTokenValid     = "token is valid"
	MessageTokenRefreshed = "token refreshed"
	MessageTokenExpired   = "token expired"
	MessageTokenInvalid   = "invalid token"
)

// Verification is the outcome of TokenVerifier.Verify. Token is the row as
// it stands afterwards and Claim describes Token.Token.
type Verification struct {
	Token   model.Token
	Claim   model.Claim
	State   VerifyState
	Message string
}

// TokenVerifier classifies a stored token row. An expired row is refreshed
// in place only when the owning user is supplied.
type TokenVerifier struct {
	codec     *TokenCodec
	refresher *TokenRefresher
}

func NewTokenVerifier(codec *TokenCodec, refresher *TokenRefresher) *TokenVerifier {
	return &TokenVerifier{codec: codec, refresher: refresher}
}

func (v *TokenVerifier) Verify(ctx context.Context, row model.Token, user *model.User) (Verification, error) {
	claim, err := v.codec.Decode(row.Token)
	switch {
	case err == nil:
		if claim.UserID != row.UserID {
			return Verification{Token: row, State: StateRejected}, model.NewUnauthorized(MessageTokenInvalid)
		}
		return Verification{Token: row, Claim: claim, State: StateValid, Message: MessageTokenValid}, nil

	case errors.Is(err, model.ErrTokenExpired):
		if claim.UserID != row.UserID {
			return Verification{Token: row, State: StateRejected}, model.NewUnauthorized(MessageTokenInvalid)
		}
		if user == nil {
			return Verification{Token: row, State: StateExpiredUnrefreshable}, model.NewUnauthorized(MessageTokenExpired)
		}

		refreshed, fresh, err := v.refresher.Refresh(ctx, row, user)
		if err != nil {
			return Verification{Token: row, State: StateExpiredRefreshable}, err
		}
		return Verification{Token: refreshed, Claim: fresh, State: StateExpiredRefreshable, Message: MessageTokenRefreshed}, nil

	default:
		return Verification{Token: row, State: StateRejected}, model.NewUnauthorized(MessageTokenInvalid)
	}
}
