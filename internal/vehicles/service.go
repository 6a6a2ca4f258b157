package vehicles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rastromax/rastromax-backend/internal/policy"
	"github.com/rastromax/rastromax-backend/pkg/db"
	"github.com/rastromax/rastromax-backend/pkg/db/models"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
	pkgpagination "github.com/rastromax/rastromax-backend/pkg/pagination"
)

type vehiclesRepository interface {
	Create(ctx context.Context, vehicle *models.Vehicle) (*models.Vehicle, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	List(ctx context.Context, opts listQuery) ([]models.Vehicle, error)
	Update(ctx context.Context, vehicle *models.Vehicle) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service exposes vehicle registration semantics gated by the policy engine.
type Service interface {
	ListVehicles(ctx context.Context, p policy.Principal, params ListParams) (*ListResult, error)
	GetVehicle(ctx context.Context, p policy.Principal, id uuid.UUID) (*VehicleDTO, error)
	CreateVehicle(ctx context.Context, p policy.Principal, input CreateVehicleInput) (*VehicleDTO, error)
	UpdateVehicle(ctx context.Context, p policy.Principal, id uuid.UUID, input UpdateVehicleInput) (*VehicleDTO, error)
	DeleteVehicle(ctx context.Context, p policy.Principal, id uuid.UUID) error
}

type service struct {
	repo vehiclesRepository
}

// NewService builds the vehicles service.
func NewService(repo vehiclesRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vehicles repository required")
	}
	return &service{repo: repo}, nil
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(plate), " ", ""))
}

func (s *service) ListVehicles(ctx context.Context, p policy.Principal, params ListParams) (*ListResult, error) {
	decision, err := policy.Authorize(p, policy.ActionRead, policy.ResourceVehicle, nil)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list vehicles")
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vehicles")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]VehicleDTO, len(rows))
	for i := range rows {
		items[i] = *FromModel(&rows[i])
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) GetVehicle(ctx context.Context, p policy.Principal, id uuid.UUID) (*VehicleDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id is required")
	}

	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup vehicle")
	}

	target := &policy.Target{OwnerID: vehicle.OwnerID}
	decision, err := policy.Authorize(p, policy.ActionRead, policy.ResourceVehicle, target)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read this vehicle")
	}
	return FromModel(vehicle), nil
}

func (s *service) CreateVehicle(ctx context.Context, p policy.Principal, input CreateVehicleInput) (*VehicleDTO, error) {
	plate := normalizePlate(input.Plate)
	if plate == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plate is required")
	}
	if strings.TrimSpace(input.Brand) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand is required")
	}
	if strings.TrimSpace(input.Model) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "model is required")
	}
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner_id is required")
	}

	decision, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceVehicle, nil)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot register vehicles")
	}

	vehicle := &models.Vehicle{
		OwnerID: input.OwnerID,
		Plate:   plate,
		Brand:   strings.TrimSpace(input.Brand),
		Model:   strings.TrimSpace(input.Model),
		Year:    input.Year,
		Color:   input.Color,
	}

	created, err := s.repo.Create(ctx, vehicle)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "plate already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vehicle")
	}
	return FromModel(created), nil
}

func (s *service) UpdateVehicle(ctx context.Context, p policy.Principal, id uuid.UUID, input UpdateVehicleInput) (*VehicleDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id is required")
	}

	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup vehicle")
	}

	target := &policy.Target{OwnerID: vehicle.OwnerID}
	decision, err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceVehicle, target)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot update this vehicle")
	}

	mask := decision.FieldMask
	if input.Plate != nil && mask.Allows("plate") {
		plate := normalizePlate(*input.Plate)
		if plate == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plate cannot be empty")
		}
		vehicle.Plate = plate
	}
	if input.Brand != nil && mask.Allows("brand") {
		vehicle.Brand = strings.TrimSpace(*input.Brand)
	}
	if input.Model != nil && mask.Allows("model") {
		vehicle.Model = strings.TrimSpace(*input.Model)
	}
	if input.Year != nil && mask.Allows("year") {
		vehicle.Year = *input.Year
	}
	if input.Color != nil && mask.Allows("color") {
		vehicle.Color = input.Color
	}

	if err := s.repo.Update(ctx, vehicle); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "plate already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vehicle")
	}
	return FromModel(vehicle), nil
}

func (s *service) DeleteVehicle(ctx context.Context, p policy.Principal, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vehicle id is required")
	}

	decision, err := policy.Authorize(p, policy.ActionDelete, policy.ResourceVehicle, nil)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete vehicles")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vehicle")
	}
	return nil
}
