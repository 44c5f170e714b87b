package models

import "time"

// LoginSession is a single continuous occupancy of a workstation by one user.
// Rows are append-only audit records: created on login, mutated exactly once
// to set logout_at, never deleted. For any user at most one row has a null
// logout_at; the session repository enforces that atomically.
type LoginSession struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	WorkstationID *string    `db:"workstation_id" json:"workstation_id,omitempty"`
	LoginAt       time.Time  `db:"login_at" json:"login_at"`
	LogoutAt      *time.Time `db:"logout_at" json:"logout_at,omitempty"`
}

// Open reports whether the session has not been closed yet.
func (s LoginSession) Open() bool {
	return s.LogoutAt == nil
}

// SessionFilter scopes session listings to an optional date range.
type SessionFilter struct {
	From *time.Time
	To   *time.Time
}
