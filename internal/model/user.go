package model

import (
	"time"
)

type UserRole string

const (
	UserRoleAdmin        UserRole = "admin"
	UserRoleDoctor       UserRole = "doctor"
	UserRoleNurse        UserRole = "nurse"
	UserRoleReceptionist UserRole = "receptionist"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleDoctor, UserRoleNurse, UserRoleReceptionist:
		return true
	}
	return false
}

// User represents a system user
type User struct {
	Base
	Email        string     `json:"email" db:"email"`
	Name         string     `json:"name" db:"name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	Department   string     `json:"department,omitempty" db:"department"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name" binding:"required,max=200"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role" binding:"required,oneof=admin doctor nurse receptionist"`
	Department string `json:"department" binding:"max=100"`
}

// UpdateUserRequest represents user update parameters
type UpdateUserRequest struct {
	Name       *string `json:"name" binding:"omitempty,max=200"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Password   *string `json:"password" binding:"omitempty,min=8"`
	Role       *string `json:"role" binding:"omitempty,oneof=admin doctor nurse receptionist"`
	Department *string `json:"department" binding:"omitempty,max=100"`
	IsActive   *bool   `json:"is_active"`
}

type UserFilters struct {
	Role       UserRole
	SearchTerm string
	ActiveOnly bool
	Pagination
}
