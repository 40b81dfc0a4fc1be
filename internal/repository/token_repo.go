package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-auth-service/internal/model"
)

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// FindByUserID returns the first token row for the user. The schema allows
// several rows per user; the login flow only ever uses the oldest one.
func (r *TokenRepository) FindByUserID(ctx context.Context, userID int64) (model.Token, error) {
	var t model.Token
	err := r.pool.QueryRow(ctx,
		`SELECT id, token, user_id FROM tokens WHERE user_id = $1 ORDER BY id LIMIT 1`, userID).
		Scan(&t.ID, &t.Token, &t.UserID)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Token{}, model.ErrTokenNotFound
	}
	if err != nil {
		return model.Token{}, fmt.Errorf("find token by user: %w", err)
	}
	return t, nil
}

func (r *TokenRepository) FindByToken(ctx context.Context, token string) (model.Token, error) {
	var t model.Token
	err := r.pool.QueryRow(ctx,
		`SELECT id, token, user_id FROM tokens WHERE token = $1`, token).
		Scan(&t.ID, &t.Token, &t.UserID)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Token{}, model.ErrTokenNotFound
	}
	if err != nil {
		return model.Token{}, fmt.Errorf("find token: %w", err)
	}
	return t, nil
}

func (r *TokenRepository) Create(ctx context.Context, t model.Token) (model.Token, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tokens (token, user_id) VALUES ($1, $2) RETURNING id`,
		t.Token, t.UserID).Scan(&t.ID)
	if err != nil {
		return model.Token{}, fmt.Errorf("create token: %w", err)
	}
	return t, nil
}

// Replace swaps the token string of row id from oldToken to newToken in one
// transaction. The update is conditional on the row still holding oldToken;
// otherwise nothing is written and model.ErrTokenConflict is returned.
func (r *TokenRepository) Replace(ctx context.Context, id int64, oldToken string, newToken string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE tokens SET token = $3 WHERE id = $1 AND token = $2`,
			id, oldToken, newToken)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrTokenConflict
		}
		return nil
	})
	if errors.Is(err, model.ErrTokenConflict) {
		return err
	}
	if err != nil {
		return fmt.Errorf("replace token: %w", err)
	}
	return nil
}
