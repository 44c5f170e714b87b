package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin          UserRole = "ADMIN"
	RoleTeacher        UserRole = "TEACHER"
	RoleStudent        UserRole = "STUDENT"
	RoleWorkingStudent UserRole = "WORKING_STUDENT"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleWorkingStudent:
		return true
	default:
		return false
	}
}

// IsStudentRole reports whether the role may appear on a class roster.
func (r UserRole) IsStudentRole() bool {
	return r == RoleStudent || r == RoleWorkingStudent
}

// User represents an application user stored in the users table. Code holds
// the role-specific identifier (employee code for staff, student code for
// learners); it is unique within a role and doubles as the login name.
type User struct {
	ID           string     `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Role         UserRole   `db:"role" json:"role"`
	YearLevel    *string    `db:"year_level" json:"year_level,omitempty"`
	Section      *string    `db:"section" json:"section,omitempty"`
	Gender       *string    `db:"gender" json:"gender,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins the name parts for display.
func (u User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
