package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"go-auth-service/internal/model"
)

const requestIDHeader = "X-Request-ID"

const accessLogContextKey contextKey = "access_log"

// accessLog is created by Logging and filled in by middleware further down
// the chain, so the single access line names the caller.
type accessLog struct {
	requestID string

	mu       sync.Mutex
	userID   int64
	username string
}

func (l *accessLog) setUser(user model.User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.userID = user.ID
	l.username = user.Username
}

func (l *accessLog) user() (int64, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.userID, l.username
}

// Logging assigns the request id and writes one access line per request.
// A client-supplied X-Request-ID is kept only when it is a UUID.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := &accessLog{requestID: r.Header.Get(requestIDHeader)}
		if _, err := uuid.Parse(entry.requestID); err != nil {
			entry.requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, entry.requestID)
		r = r.WithContext(context.WithValue(r.Context(), accessLogContextKey, entry))

		started := time.Now()
		recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		attrs := []any{
			"request_id", entry.requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(started).Milliseconds(),
			"client_ip", remoteHost(r),
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			attrs = append(attrs, "route", rctx.RoutePattern())
		}
		if id, name := entry.user(); id != 0 {
			attrs = append(attrs, "user_id", id, "username", name)
		}
		attrs = append(attrs, recorder.failure()...)

		switch {
		case recorder.status >= 500:
			slog.Error("request", attrs...)
		case recorder.status >= 400:
			slog.Warn("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	})
}

// RequestIDFromContext returns the id assigned by Logging, or "".
func RequestIDFromContext(ctx context.Context) string {
	if entry, ok := ctx.Value(accessLogContextKey).(*accessLog); ok {
		return entry.requestID
	}
	return ""
}

func recordUser(ctx context.Context, user model.User) {
	if entry, ok := ctx.Value(accessLogContextKey).(*accessLog); ok {
		entry.setUser(user)
	}
}

// responseRecorder keeps the status and, for failures only, the body. Login
// bodies carry tokens and are never retained.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (rw *responseRecorder) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	rw.status = statusCode
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.status >= 400 {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// failure returns log attrs for the error envelope of a 4xx/5xx response.
func (rw *responseRecorder) failure() []any {
	if rw.status < 400 || rw.body.Len() == 0 {
		return nil
	}

	var envelope model.APIResponse
	if err := json.Unmarshal(rw.body.Bytes(), &envelope); err != nil || envelope.Error == nil {
		return nil
	}

	attrs := []any{"error_code", envelope.Error.Code, "error_message", envelope.Error.Message}
	if envelope.Error.Details != "" {
		attrs = append(attrs, "error_details", envelope.Error.Details)
	}
	return attrs
}
