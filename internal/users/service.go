package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rastromax/rastromax-backend/internal/policy"
	"github.com/rastromax/rastromax-backend/pkg/config"
	"github.com/rastromax/rastromax-backend/pkg/db"
	"github.com/rastromax/rastromax-backend/pkg/db/models"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
	"github.com/rastromax/rastromax-backend/pkg/logger"
	pkgpagination "github.com/rastromax/rastromax-backend/pkg/pagination"
	"github.com/rastromax/rastromax-backend/pkg/security"
)

const tempPasswordLength = 12

type usersRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, opts listQuery) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

type mirrorWriter interface {
	MirrorUser(ctx context.Context, user *models.User)
	RemoveUser(ctx context.Context, id uuid.UUID)
}

type welcomeMailer interface {
	SendTemporaryPassword(ctx context.Context, email, name, password string) error
}

// Service exposes account management semantics gated by the policy engine.
type Service interface {
	ListUsers(ctx context.Context, p policy.Principal, params ListParams) (*ListResult, error)
	GetUser(ctx context.Context, p policy.Principal, id uuid.UUID) (*UserDTO, error)
	CreateUser(ctx context.Context, p policy.Principal, input CreateUserInput) (*CreateUserResult, error)
	UpdateUser(ctx context.Context, p policy.Principal, id uuid.UUID, input UpdateUserInput) (*UserDTO, error)
	DeleteUser(ctx context.Context, p policy.Principal, id uuid.UUID) error
}

// ServiceParams bundles the service dependencies.
type ServiceParams struct {
	Repo     usersRepository
	Mirror   mirrorWriter
	Mailer   welcomeMailer
	Password config.PasswordConfig
	Logger   *logger.Logger
}

type service struct {
	repo     usersRepository
	mirror   mirrorWriter
	mailer   welcomeMailer
	password config.PasswordConfig
	logg     *logger.Logger
}

// NewService builds the users service. Mirror and mailer are optional
// collaborators; everything else is required.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		mirror:   params.Mirror,
		mailer:   params.Mailer,
		password: params.Password,
		logg:     params.Logger,
	}, nil
}

func (s *service) ListUsers(ctx context.Context, p policy.Principal, params ListParams) (*ListResult, error) {
	decision, err := policy.Authorize(p, policy.ActionRead, policy.ResourceUser, nil)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list users")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		scope:  decision.Scope,
		selfID: p.ID,
		limit:  pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]UserDTO, len(rows))
	for i := range rows {
		items[i] = *FromModel(&rows[i])
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) GetUser(ctx context.Context, p policy.Principal, id uuid.UUID) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	target := &policy.Target{OwnerID: user.ID, UserRole: user.Role}
	decision, err := policy.Authorize(p, policy.ActionRead, policy.ResourceUser, target)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read this user")
	}
	return FromModel(user), nil
}

func (s *service) CreateUser(ctx context.Context, p policy.Principal, input CreateUserInput) (*CreateUserResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := strings.TrimSpace(input.Name)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	target := &policy.Target{UserRole: input.Role}
	decision, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceUser, target)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot create this account")
	}

	plaintext := input.Password
	tempPassword := ""
	if plaintext == "" {
		tempPassword, err = security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
		}
		plaintext = tempPassword
	}

	hash, err := security.HashPassword(plaintext, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        input.Phone,
		Role:         input.Role,
		IsActive:     isActive,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	if s.mirror != nil {
		s.mirror.MirrorUser(ctx, created)
	}

	if tempPassword != "" && s.mailer != nil {
		if err := s.mailer.SendTemporaryPassword(ctx, created.Email, created.Name, tempPassword); err != nil {
			s.logg.Error(s.logg.WithUserID(ctx, created.ID.String()), "sending temporary password email failed", err)
		}
	}

	return &CreateUserResult{User: FromModel(created), TempPassword: tempPassword}, nil
}

func (s *service) UpdateUser(ctx context.Context, p policy.Principal, id uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	target := &policy.Target{OwnerID: user.ID, UserRole: user.Role}
	decision, err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceUser, target)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot update this user")
	}

	// fields outside the caller's mask are dropped, not rejected
	mask := decision.FieldMask
	if input.Email != nil && mask.Allows("email") {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
		}
		user.Email = email
	}
	if input.Name != nil && mask.Allows("name") {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		user.Name = name
	}
	if input.Phone != nil && mask.Allows("phone") {
		user.Phone = input.Phone
	}
	if input.Role != nil && mask.Allows("role") {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		user.Role = *input.Role
	}
	if input.IsActive != nil && mask.Allows("is_active") {
		user.IsActive = *input.IsActive
	}
	if input.Password != nil && mask.Allows("password") {
		hash, err := security.HashPassword(*input.Password, s.password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}

	if s.mirror != nil {
		s.mirror.MirrorUser(ctx, user)
	}
	return FromModel(user), nil
}

func (s *service) DeleteUser(ctx context.Context, p policy.Principal, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if id == p.ID {
		return pkgerrors.New(pkgerrors.CodeConflict, "cannot delete own account")
	}

	decision, err := policy.Authorize(p, policy.ActionDelete, policy.ResourceUser, nil)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete users")
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}

	if s.mirror != nil {
		s.mirror.RemoveUser(ctx, id)
	}
	return nil
}
