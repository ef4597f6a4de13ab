package models

import (
	"time"
)

// Role is the access level of a user
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

// User represents a user in the system
type User struct {
	ID                  int64      `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	Role                Role       `json:"role"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	PasswordHash        string     `json:"-"`
	PasswordChangedAt   *time.Time `json:"password_changed_at,omitempty"`
	FailedLoginAttempts int        `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	LastFailedLogin     *time.Time `json:"last_failed_login,omitempty"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsAdmin returns true if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsLocked reports whether the account is locked at the given instant
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RegisterRequest represents the request to create a new account
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=50,nospaces" example:"alice"`
	Email     string `json:"email" binding:"required,email,max=255" example:"alice@example.edu"`
	Password  string `json:"password" binding:"required,max=128"`
	FirstName string `json:"first_name" binding:"required,max=100" example:"Alice"`
	LastName  string `json:"last_name" binding:"required,max=100" example:"Liddell"`
	Role      Role   `json:"role,omitempty" binding:"omitempty,role" example:"student"`
}

// ChangePasswordRequest represents the request to change the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,max=128"`
}

// ChangeRoleRequest represents an admin request to change a user's role
type ChangeRoleRequest struct {
	Role Role `json:"role" binding:"required,role" example:"faculty"`
}
