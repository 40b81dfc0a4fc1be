package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-auth-service/internal/model"
)

// DefaultTokenTTL is the lifetime of a freshly issued session token.
const DefaultTokenTTL = 4800 * time.Second

// TokenCodec signs and verifies session claims with HS256. The secret is
// fixed at construction.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

type CodecOption func(*TokenCodec)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

func NewTokenCodec(secret string, opts ...CodecOption) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is required")
	}

	c := &TokenCodec{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode issues a token for userID that expires ttl from now.
func (c *TokenCodec) Encode(userID int64, ttl time.Duration) (string, error) {
	token, _, err := c.issue(userID, ttl)
	return token, err
}

func (c *TokenCodec) issue(userID int64, ttl time.Duration) (string, model.Claim, error) {
	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", model.Claim{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, model.Claim{UserID: userID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Decode verifies token and returns its claim. Failures are
// model.ErrTokenExpired when the signature is good but exp has passed, and
// model.ErrTokenMalformed for everything else. An expired token still
// yields its claim so callers can check ownership before refreshing.
func (c *TokenCodec) Decode(token string) (model.Claim, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	expired := false
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid):
		expired = true
	default:
		return model.Claim{}, fmt.Errorf("%w: %w", model.ErrTokenMalformed, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return model.Claim{}, fmt.Errorf("%w: invalid subject %q", model.ErrTokenMalformed, claims.Subject)
	}

	claim := model.Claim{UserID: userID, ExpiresAt: claims.ExpiresAt.Time}
	if expired {
		return claim, model.ErrTokenExpired
	}
	return claim, nil
}
