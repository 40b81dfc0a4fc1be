package service

import (
	"context"
	"fmt"
	"log/slog"

	"go-auth-service/internal/event"
	"go-auth-service/internal/model"
)

// AuditService persists auth events to the audit store.
type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Run records every event from events until the channel closes or ctx is
// done. Store failures are logged and the event is skipped.
func (s *AuditService) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := s.store.Log(ctx, entryFromEvent(e)); err != nil {
				slog.Error("audit write failed", "type", e.Type, "error", err)
			}
		}
	}
}

func (s *AuditService) Recent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	entries, err := s.store.Recent(ctx, model.AuditQuery{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("recent audit entries: %w", err)
	}
	return entries, nil
}

func entryFromEvent(e event.Event) model.AuditEntry {
	entry := model.AuditEntry{
		Action:     string(e.Type),
		OccurredAt: e.OccurredAt,
		Username:   e.Username,
		Detail:     e.Detail,
	}
	if e.UserID != 0 {
		id := e.UserID
		entry.UserID = &id
	}
	return entry
}
