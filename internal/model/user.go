package model

import "time"

// User is the identity record owned by the credential store. HashedPassword
// never leaves the service; use Public for anything sent to a client.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
	Role           Role      `json:"role"`
	FullName       string    `json:"full_name"`
	CreatedAt      time.Time `json:"created_at"`
}

type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	FullName string `json:"full_name"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Role: u.Role, FullName: u.FullName}
}

type PublicUserList struct {
	Users []PublicUser `json:"users"`
}
