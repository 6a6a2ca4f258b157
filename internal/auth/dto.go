package auth

import (
	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/pkg/enums"
)

// LoginInput carries the credentials posted to /auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PrincipalDTO is the authenticated identity echoed back on login.
type PrincipalDTO struct {
	ID    uuid.UUID  `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  enums.Role `json:"role"`
}

// LoginResult is the login response body.
type LoginResult struct {
	Token     string       `json:"token"`
	Principal PrincipalDTO `json:"principal"`
}

// ResetPasswordInput carries the address requesting a temporary password.
type ResetPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}
