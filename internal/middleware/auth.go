package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-auth-service/internal/model"
)

type userResolver interface {
	ResolveCurrentUser(ctx context.Context, bearer string) (model.User, error)
}

type contextKey string

const currentUserContextKey contextKey = "current_user"

type AuthMiddleware struct {
	resolver userResolver
}

func NewAuthMiddleware(resolver userResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// RequireAuth resolves the bearer token to its owning user and stores the
// user in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer, ok := bearerToken(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token not found")
			return
		}

		user, err := m.resolver.ResolveCurrentUser(r.Context(), bearer)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}

		recordUser(r.Context(), user)
		ctx := context.WithValue(r.Context(), currentUserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole admits the request only when gate accepts the current user.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(gate func(model.User) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if err := gate(user); err != nil {
				writeAuthError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(currentUserContextKey).(model.User)
	return user, ok
}

// WithUser returns ctx carrying user, as RequireAuth would.
func WithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, currentUserContextKey, user)
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}

	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	message := "authentication failed"
	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		message = authErr.Message
	}

	switch {
	case errors.Is(err, model.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "FORBIDDEN", message)
	case errors.Is(err, model.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
	default:
		slog.Error("authorization failed", "request_id", RequestIDFromContext(r.Context()), "error", err)
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
	}
}
