package users

import (
	"time"

	"github.com/meridian-pos/meridian-pos/internal/roles"
)

// User is a staff account. PasswordHash never leaves the API.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         roles.Role `json:"role"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateUserRequest is the create payload.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required"`
}

// UpdateUserRequest is the update payload. Password is optional; when set it
// replaces the stored hash.
type UpdateUserRequest struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	Role     string  `json:"role" validate:"required"`
}
