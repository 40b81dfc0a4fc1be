package model

import "time"

type AuditEntry struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
	UserID     *int64    `json:"user_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

type AuditEntryList struct {
	Entries []AuditEntry `json:"entries"`
}
