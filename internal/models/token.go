package models

import (
	"time"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenPair issued by AuthService on login and refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
