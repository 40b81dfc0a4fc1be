package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go-auth-service/internal/model"
	"go-auth-service/pkg/apierror"
)

type auditReader interface {
	Recent(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

type AuditHandler struct {
	audit auditReader
}

func NewAuditHandler(audit auditReader) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, r, apierror.BadRequest("limit must be a non-negative integer", "limit"))
			return
		}
		limit = parsed
	}

	entries, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuditEntryList{Entries: entries})
}
