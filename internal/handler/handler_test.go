package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-auth-service/internal/middleware"
	"go-auth-service/internal/model"
	"go-auth-service/internal/service"
)

type stubRegistrar struct {
	user model.User
	err  error
	got  model.RegistrationRequest
}

func (s *stubRegistrar) Register(_ context.Context, req model.RegistrationRequest) (model.User, error) {
	s.got = req
	return s.user, s.err
}

type stubAuthenticator struct {
	result   service.LoginResult
	err      error
	username string
	password string
}

func (s *stubAuthenticator) Login(_ context.Context, username string, password string) (service.LoginResult, error) {
	s.username, s.password = username, password
	return s.result, s.err
}

type stubDirectory struct {
	users []model.PublicUser
	err   error
}

func (s *stubDirectory) List(context.Context) ([]model.PublicUser, error) {
	return s.users, s.err
}

func (s *stubDirectory) Get(_ context.Context, id int64) (model.PublicUser, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.PublicUser{}, model.NewNotFound("user not found")
}

type stubAudit struct {
	limit int
}

func (s *stubAudit) Recent(_ context.Context, limit int) ([]model.AuditEntry, error) {
	s.limit = limit
	return []model.AuditEntry{{ID: 1, Action: "session.created"}}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func postForm(h http.HandlerFunc, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestAuthHandlerRegister(t *testing.T) {
	t.Parallel()

	post := func(h *AuthHandler, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/registration", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.Register(rec, req)
		return rec
	}

	t.Run("created user is returned without its hash", func(t *testing.T) {
		reg := &stubRegistrar{user: model.User{ID: 7, Username: "alice", HashedPassword: "$2a$secret", Role: model.RoleRegular, FullName: "Alice"}}
		rec := post(NewAuthHandler(reg, nil), `{"username":"alice","password":"wonderland","confirm_password":"wonderland","full_name":"Alice"}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotContains(t, rec.Body.String(), "$2a$secret")
		assert.Equal(t, "wonderland", reg.got.ConfirmPassword)

		env := decodeEnvelope(t, rec)
		assert.True(t, env.Success)
		assert.JSONEq(t, `{"message":"user registered","user":{"id":7,"username":"alice","role":"regular","full_name":"Alice"}}`, string(env.Data))
	})

	t.Run("camelCase body is accepted", func(t *testing.T) {
		reg := &stubRegistrar{user: model.User{ID: 7, Username: "alice", Role: model.RoleRegular, FullName: "Alice"}}
		rec := post(NewAuthHandler(reg, nil), `{"username":"alice","password":"wonderland","confirmPassword":"wonderland","fullName":"Alice"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "wonderland", reg.got.ConfirmPassword)
		assert.Equal(t, "Alice", reg.got.FullName)
	})

	t.Run("unknown field is 400", func(t *testing.T) {
		rec := post(NewAuthHandler(&stubRegistrar{}, nil), `{"username":"alice","password":"wonderland","confirm_password":"wonderland","full_name":"Alice","role":"admin"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("conflict is 409", func(t *testing.T) {
		reg := &stubRegistrar{err: model.NewConflict("username already registered")}
		rec := post(NewAuthHandler(reg, nil), `{"username":"alice","password":"wonderland","confirm_password":"wonderland","full_name":"Alice"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, "CONFLICT", env.Error.Code)
		assert.Equal(t, "username already registered", env.Error.Message)
	})

	t.Run("validation failure is 422 naming the field", func(t *testing.T) {
		reg := &stubRegistrar{err: model.NewValidationFailed("confirm_password", "passwords do not match")}
		rec := post(NewAuthHandler(reg, nil), `{"username":"alice","password":"wonderland","confirm_password":"x","full_name":"Alice"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
		assert.Equal(t, "confirm_password", env.Error.Details)
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		rec := post(NewAuthHandler(&stubRegistrar{}, nil), `{"username":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandlerLogin(t *testing.T) {
	t.Parallel()

	credentials := url.Values{"username": {"alice"}, "password": {"wonderland"}, "client_id": {"ignored"}}

	tests := []struct {
		name       string
		result     service.LoginResult
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "new session", result: service.LoginResult{Outcome: service.OutcomeSessionCreated, Message: service.MessageSessionCreated, AccessToken: "T1"}, wantStatus: http.StatusCreated},
		{name: "reused session", result: service.LoginResult{Outcome: service.OutcomeSessionReused, Message: service.MessageTokenValid, AccessToken: "T1"}, wantStatus: http.StatusOK},
		{name: "refreshed session", result: service.LoginResult{Outcome: service.OutcomeSessionRefreshed, Message: service.MessageTokenRefreshed, AccessToken: "T2"}, wantStatus: http.StatusOK},
		{name: "unknown user", err: model.NewNotFound("user not found"), wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "wrong password", err: model.NewUnauthorized("incorrect password"), wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "refresh race", err: model.NewConflict("session is being refreshed concurrently, retry"), wantStatus: http.StatusConflict, wantCode: "CONFLICT"},
		{name: "storage failure", err: errors.New("login: connection reset"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &stubAuthenticator{result: tt.result, err: tt.err}
			rec := postForm(NewAuthHandler(nil, auth).Login, credentials)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "alice", auth.username)
			assert.Equal(t, "wonderland", auth.password)

			env := decodeEnvelope(t, rec)
			if tt.err != nil {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantCode, env.Error.Code)
				assert.NotContains(t, rec.Body.String(), "connection reset")
				return
			}

			var body model.LoginResponse
			require.NoError(t, json.Unmarshal(env.Data, &body))
			assert.Equal(t, tt.result.AccessToken, body.AccessToken)
			assert.Equal(t, tt.result.Message, body.Message)
			assert.Equal(t, "bearer", body.TokenType)
		})
	}

	t.Run("missing password is 422 without calling the service", func(t *testing.T) {
		auth := &stubAuthenticator{}
		rec := postForm(NewAuthHandler(nil, auth).Login, url.Values{"username": {"alice"}})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Empty(t, auth.username)
	})
}

func TestAuthHandlerMe(t *testing.T) {
	t.Parallel()

	h := NewAuthHandler(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), model.User{ID: 3, Username: "alice", HashedPassword: "h", Role: model.RoleElevated, FullName: "Alice"}))
	rec := httptest.NewRecorder()

	h.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.JSONEq(t, `{"id":3,"username":"alice","role":"elevated","full_name":"Alice"}`, string(env.Data))
}

func TestUserHandler(t *testing.T) {
	t.Parallel()

	dir := &stubDirectory{users: []model.PublicUser{{ID: 1, Username: "root", Role: model.RoleAdmin}}}
	r := chi.NewRouter()
	h := NewUserHandler(dir)
	r.Get("/users", h.List)
	r.Get("/users/{id}", h.Get)

	serve := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := serve("/users")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":[{"id":1,"username":"root","role":"admin","full_name":""}]}`, string(decodeEnvelope(t, rec).Data))

	assert.Equal(t, http.StatusOK, serve("/users/1").Code)
	assert.Equal(t, http.StatusNotFound, serve("/users/2").Code)
	assert.Equal(t, http.StatusBadRequest, serve("/users/abc").Code)
	assert.Equal(t, http.StatusBadRequest, serve("/users/0").Code)
}

func TestAuditHandler(t *testing.T) {
	t.Parallel()

	audit := &stubAudit{}
	h := NewAuditHandler(audit)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit?limit=25", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, audit.limit)
	assert.Contains(t, rec.Body.String(), `"action":"session.created"`)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit?limit=lots", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocsHandler(t *testing.T) {
	t.Parallel()

	h := NewDocsHandler()

	rec := httptest.NewRecorder()
	h.OpenAPI(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "/api/v1/auth/login:")
	assert.Contains(t, rec.Body.String(), "confirmPassword")
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.OpenAPI(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Zero(t, rec.Body.Len())

	rec = httptest.NewRecorder()
	h.SwaggerUI(rec, httptest.NewRequest(http.MethodGet, "/swagger", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "url: '/openapi.yaml'")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "https://unpkg.com")
}
