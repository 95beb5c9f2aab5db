package models

import (
	"time"
)

type Contact struct {
	ID        int64
	UserID    int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Birthday  time.Time
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
