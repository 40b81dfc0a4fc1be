package model

import "time"

// Token is a persisted session row. Expiry lives only inside the signed
// token string, never in a column.
type Token struct {
	ID     int64  `json:"id"`
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

// Claim is the decoded payload of a token string.
type Claim struct {
	UserID    int64
	ExpiresAt time.Time
}
