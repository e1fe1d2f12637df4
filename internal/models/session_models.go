// Package models contains the models for the Finance API
package models

import (
	"time"
)

// Identity is the pending identity held by a session between the two login steps,
// and the set of claims carried by an issued bearer token
type Identity struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	BankAccount   string `json:"bank_account,omitempty"`
	RoutingNumber string `json:"routing_number,omitempty"`
}

// IdentityOf builds the identity of a user
func IdentityOf(u *User) Identity {
	return Identity{
		UserID:        u.UserID,
		Username:      u.Username,
		FirstName:     u.FirstName,
		BankAccount:   u.BankAccount,
		RoutingNumber: u.RoutingNumber,
	}
}

// Session is the transient per-browser state of the two-factor login
type Session struct {
	ID              string
	PendingCode     string
	PendingIdentity *Identity
	Attempts        int
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// HasPendingCode reports whether the session is waiting for a two-factor code
func (s *Session) HasPendingCode() bool {
	return s.PendingCode != "" && s.PendingIdentity != nil
}

// SessionUpdate is a partial update of a Session; nil fields are left unchanged.
// ClearPending removes the code, identity and attempt counter and is applied first.
type SessionUpdate struct {
	PendingCode     *string
	PendingIdentity *Identity
	Attempts        *int
	ClearPending    bool
}
