package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/rastromax/rastromax-backend/pkg/auth"
	"github.com/rastromax/rastromax-backend/pkg/config"
	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/enums"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
	"github.com/rastromax/rastromax-backend/pkg/logger"
	"github.com/rastromax/rastromax-backend/pkg/security"
)

type credentialsRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionRegistry interface {
	Register(ctx context.Context, accessID string, userID string) error
	Revoke(ctx context.Context, accessID string) error
}

type resetMailer interface {
	SendTemporaryPassword(ctx context.Context, email, name, password string) error
}

type sessionPollers interface {
	StartSession(sessionID string, ownerID uuid.UUID)
	EndSession(sessionID string)
}

// Service handles credential verification and session lifecycle.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, accessID string) error
	ResetPassword(ctx context.Context, input ResetPasswordInput) error
}

// ServiceParams bundles the service dependencies.
type ServiceParams struct {
	Repo      credentialsRepository
	Sessions  sessionRegistry
	Mailer    resetMailer
	Telemetry sessionPollers
	JWT       config.JWTConfig
	Password  config.PasswordConfig
	Logger    *logger.Logger
}

type service struct {
	repo      credentialsRepository
	sessions  sessionRegistry
	mailer    resetMailer
	telemetry sessionPollers
	jwt       config.JWTConfig
	password  config.PasswordConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the auth service. The mailer is optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("credentials repository required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session registry required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		sessions:  params.Sessions,
		mailer:    params.Mailer,
		telemetry: params.Telemetry,
		jwt:       params.JWT,
		password:  params.Password,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}

	jti := uuid.NewString()
	token, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    jti,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	if err := s.sessions.Register(ctx, jti, user.ID.String()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register session")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "update last login", err)
	}

	if s.telemetry != nil && user.Role == enums.RoleClient {
		s.telemetry.StartSession(jti, user.ID)
	}

	return &LoginResult{
		Token: token,
		Principal: PrincipalDTO{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id is required")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	if s.telemetry != nil {
		s.telemetry.EndSession(accessID)
	}
	return nil
}

// ResetPassword issues a fresh temporary password and mails it. A miss on the
// email is reported as success so the endpoint cannot be used to enumerate
// accounts.
func (s *service) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	tempPassword, err := security.GenerateTempPassword(12)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
	}
	hash, err := security.HashPassword(tempPassword, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash temporary password")
	}

	user.PasswordHash = hash
	if err := s.repo.Update(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store temporary password")
	}

	if s.mailer != nil {
		if err := s.mailer.SendTemporaryPassword(ctx, user.Email, user.Name, tempPassword); err != nil {
			s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "send password reset email", err)
		}
	}
	return nil
}
