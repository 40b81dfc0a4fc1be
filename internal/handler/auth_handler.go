package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go-auth-service/internal/middleware"
	"go-auth-service/internal/model"
	"go-auth-service/internal/service"
	"go-auth-service/pkg/apierror"
)

const maxBodyBytes = 1 << 16

type registrar interface {
	Register(ctx context.Context, req model.RegistrationRequest) (model.User, error)
}

type authenticator interface {
	Login(ctx context.Context, username string, password string) (service.LoginResult, error)
}

type AuthHandler struct {
	registration registrar
	login        authenticator
}

func NewAuthHandler(registration registrar, login authenticator) *AuthHandler {
	return &AuthHandler{registration: registration, login: login}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegistrationRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		writeError(w, r, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	user, err := h.registration.Register(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, model.RegistrationResponse{
		Message: "user registered",
		User:    user.Public(),
	})
}

// Login accepts an OAuth2 password-grant style form. A brand-new session
// answers 201; a reused or refreshed one answers 200.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, r, apierror.BadRequest("invalid form body", ""))
		return
	}

	form := model.LoginForm{
		Username:     strings.TrimSpace(r.PostForm.Get("username")),
		Password:     r.PostForm.Get("password"),
		ClientID:     r.PostForm.Get("client_id"),
		ClientSecret: r.PostForm.Get("client_secret"),
	}
	if form.Username == "" {
		writeError(w, r, model.NewValidationFailed("username", "username is required"))
		return
	}
	if form.Password == "" {
		writeError(w, r, model.NewValidationFailed("password", "password is required"))
		return
	}

	result, err := h.login.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == service.OutcomeSessionCreated {
		status = http.StatusCreated
	}

	writeSuccess(w, status, model.LoginResponse{
		Message:     result.Message,
		AccessToken: result.AccessToken,
		TokenType:   "bearer",
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, errors.New("me: no user in context"))
		return
	}

	writeSuccess(w, http.StatusOK, user.Public())
}
