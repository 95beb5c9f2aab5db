package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID             int64
	CreatedAt      time.Time
	Username       string
	Email          string
	HashedPassword string
	Role           Role
	Avatar         string // empty if the user has no avatar
	Confirmed      bool
}

// UserSnapshot is the identity subset cached per access token.
// It never carries the password hash.
type UserSnapshot struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Role     Role   `json:"role"`
}

func SnapshotOf(u User) UserSnapshot {
	return UserSnapshot{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
		Role:     u.Role,
	}
}
