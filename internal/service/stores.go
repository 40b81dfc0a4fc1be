package service

import (
	"context"

	"go-auth-service/internal/model"
)

// UserStore is the credential store. Lookups report model.ErrUserNotFound
// and Create reports model.ErrUserAlreadyExists.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

// TokenStore persists session rows. Lookups report model.ErrTokenNotFound.
// Replace must be transactional and conditional on the row still holding
// oldToken, reporting model.ErrTokenConflict otherwise.
type TokenStore interface {
	FindByUserID(ctx context.Context, userID int64) (model.Token, error)
	FindByToken(ctx context.Context, token string) (model.Token, error)
	Create(ctx context.Context, t model.Token) (model.Token, error)
	Replace(ctx context.Context, id int64, oldToken string, newToken string) error
}

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Recent(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, error)
}
