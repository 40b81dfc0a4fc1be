package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go-auth-service/internal/model"
	"go-auth-service/pkg/apierror"
)

type userDirectory interface {
	List(ctx context.Context) ([]model.PublicUser, error)
	Get(ctx context.Context, id int64) (model.PublicUser, error)
}

type UserHandler struct {
	users userDirectory
}

func NewUserHandler(users userDirectory) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.PublicUserList{Users: users})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, apierror.BadRequest("user id must be a positive integer", "id"))
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user)
}
