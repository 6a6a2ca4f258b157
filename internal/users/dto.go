package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/enums"
	"github.com/rastromax/rastromax-backend/pkg/pagination"
)

// UserDTO is the transport shape that omits the credential hash.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       *string    `json:"phone,omitempty"`
	Role        enums.Role `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// CreateUserInput holds the fields a principal may supply for a new account.
type CreateUserInput struct {
	Email    string
	Name     string
	Phone    *string
	Role     enums.Role
	Password string
	IsActive *bool
}

// CreateUserResult carries the created account and, when the caller did not
// choose a password, the generated temporary one.
type CreateUserResult struct {
	User         *UserDTO `json:"user"`
	TempPassword string   `json:"temp_password,omitempty"`
}

// UpdateUserInput uses pointers so absent fields stay untouched. Fields the
// caller's role may not write are dropped silently, not rejected.
type UpdateUserInput struct {
	Email    *string
	Name     *string
	Phone    *string
	Role     *enums.Role
	Password *string
	IsActive *bool
}

// ListParams bundles pagination inputs for user listings.
type ListParams struct {
	pagination.Params
}

// ListResult is one page of users plus the cursor for the next page.
type ListResult struct {
	Items  []UserDTO `json:"items"`
	Cursor string    `json:"cursor,omitempty"`
}
