package models

import (
	"time"
)

// Account roles
const (
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
	RoleManager  = "manager"
)

// Account is one record per registered identity. Email is the unique
// lookup key; PasswordHash is never exposed outside the service layer.
type Account struct {
	ID           string
	Email        string
	Name         string
	Phone        string
	PasswordHash string
	Role         string // "employee", "admin", "manager"
	Verified     bool
	Challenge    *Challenge // present only while verification or reset is pending
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Challenge is the pending OTP code and its expiry attached to an
// account awaiting verification.
type Challenge struct {
	Code      string // exactly 6 ASCII digits
	ExpiresAt time.Time
}

// IsExpired reports whether the challenge can no longer be satisfied.
func (c *Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
