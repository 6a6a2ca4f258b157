package trackers

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
	"github.com/rastromax/rastromax-backend/pkg/logger"
	pkgpagination "github.com/rastromax/rastromax-backend/pkg/pagination"
)

const identifierLength = 15

type trackersRepository interface {
	CreateWithInvoice(ctx context.Context, tracker *models.Tracker, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tracker, error)
	IdentifierExists(ctx context.Context, identifier string) (bool, error)
	List(ctx context.Context, opts listQuery) ([]models.Tracker, error)
	Update(ctx context.Context, tracker *models.Tracker) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListInvoices(ctx context.Context, opts listQuery) ([]models.Invoice, error)
}

type activationSender interface {
	SendActivationCommand(ctx context.Context, identifier string, chipNumber *string) error
}

type snapshotForgetter interface {
	Forget(identifier string)
}

// Service exposes tracker provisioning semantics gated by the policy engine.
type Service interface {
	ListTrackers(ctx context.Context, p policy.Principal, params ListParams) (*ListResult, error)
	GetTracker(ctx context.Context, p policy.Principal, id uuid.UUID) (*TrackerDTO, error)
	CheckIdentifier(ctx context.Context, p policy.Principal, identifier string) (*IdentifierCheck, error)
	CreateTracker(ctx context.Context, p policy.Principal, input CreateTrackerInput) (*CreateTrackerResult, error)
	UpdateTracker(ctx context.Context, p policy.Principal, id uuid.UUID, input UpdateTrackerInput) (*TrackerDTO, error)
	DeleteTracker(ctx context.Context, p policy.Principal, id uuid.UUID) error
	ListInvoices(ctx context.Context, p policy.Principal, params ListParams) ([]InvoiceDTO, error)
}

// ServiceParams bundles the service dependencies.
type ServiceParams struct {
	Repo      trackersRepository
	SMS       activationSender
	Snapshots snapshotForgetter
	Logger    *logger.Logger
}

type service struct {
	repo      trackersRepository
	sms       activationSender
	snapshots snapshotForgetter
	logg      *logger.Logger
}

// NewService builds the trackers service. SMS and snapshot collaborators are
// optional; repo and logger are required.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("trackers repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		sms:       params.SMS,
		snapshots: params.Snapshots,
		logg:      params.Logger,
	}, nil
}

// ValidIdentifier reports whether the value is a 15-digit numeric IMEI.
func ValidIdentifier(identifier string) bool {
	if len(identifier) != identifierLength {
		return false
	}
	for _, r := range identifier {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *service) ListTrackers(ctx context.Context, p policy.Principal, params ListParams) (*ListResult, error) {
	decision, err := policy.Authorize(p, policy.ActionRead, policy.ResourceTracker, nil)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list trackers")
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trackers")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]TrackerDTO, len(rows))
	for i := range rows {
		items[i] = *FromModel(&rows[i])
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) GetTracker(ctx context.Context, p policy.Principal, id uuid.UUID) (*TrackerDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracker id is required")
	}

	tracker, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tracker not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tracker")
	}

	target := &policy.Target{OwnerID: tracker.OwnerID}
	decision, err := policy.Authorize(p, policy.ActionRead, policy.ResourceTracker, target)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read this tracker")
	}
	return FromModel(tracker), nil
}

func (s *service) CheckIdentifier(ctx context.Context, p policy.Principal, identifier string) (*IdentifierCheck, error) {
	identifier = strings.TrimSpace(identifier)
	if !ValidIdentifier(identifier) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier must be a 15-digit number")
	}

	decision, err := policy.Authorize(p, policy.ActionRead, policy.ResourceTracker, nil)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot query trackers")
	}

	exists, err := s.repo.IdentifierExists(ctx, identifier)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check identifier")
	}
	return &IdentifierCheck{Identifier: identifier, InUse: exists}, nil
}

func (s *service) CreateTracker(ctx context.Context, p policy.Principal, input CreateTrackerInput) (*CreateTrackerResult, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if !ValidIdentifier(identifier) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier must be a 15-digit number")
	}
	if strings.TrimSpace(input.Model) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "model is required")
	}
	if input.VehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle_id is required")
	}
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner_id is required")
	}
	if input.LicenseAmount.IsNegative() || input.LicenseAmount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license amount must be positive")
	}
	if input.LicenseDueDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license due date is required")
	}

	decision, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceTracker, nil)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot provision trackers")
	}

	tracker := &models.Tracker{
		Identifier: identifier,
		Model:      strings.TrimSpace(input.Model),
		VehicleID:  input.VehicleID,
		OwnerID:    input.OwnerID,
		ChipNumber: input.ChipNumber,
	}
	invoice := &models.Invoice{
		OwnerID: input.OwnerID,
		Amount:  input.LicenseAmount,
		DueDate: input.LicenseDueDate,
	}

	if err := s.repo.CreateWithInvoice(ctx, tracker, invoice); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "identifier already provisioned")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provision tracker")
	}

	if s.sms != nil {
		if err := s.sms.SendActivationCommand(ctx, tracker.Identifier, tracker.ChipNumber); err != nil {
			s.logg.Error(s.logg.WithDeviceID(ctx, tracker.Identifier), "activation sms delivery failed", err)
		}
	}

	return &CreateTrackerResult{
		Tracker: FromModel(tracker),
		Invoice: invoiceFromModel(invoice),
	}, nil
}

func (s *service) UpdateTracker(ctx context.Context, p policy.Principal, id uuid.UUID, input UpdateTrackerInput) (*TrackerDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracker id is required")
	}

	tracker, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tracker not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tracker")
	}

	target := &policy.Target{OwnerID: tracker.OwnerID}
	decision, err := policy.Authorize(p, policy.ActionUpdate, policy.ResourceTracker, target)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot update this tracker")
	}

	mask := decision.FieldMask
	if input.Model != nil && mask.Allows("model") {
		model := strings.TrimSpace(*input.Model)
		if model == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "model cannot be empty")
		}
		tracker.Model = model
	}
	if input.ChipNumber != nil && mask.Allows("chip_number") {
		tracker.ChipNumber = input.ChipNumber
	}

	if err := s.repo.Update(ctx, tracker); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tracker")
	}
	return FromModel(tracker), nil
}

func (s *service) DeleteTracker(ctx context.Context, p policy.Principal, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracker id is required")
	}

	decision, err := policy.Authorize(p, policy.ActionDelete, policy.ResourceTracker, nil)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete trackers")
	}

	tracker, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tracker not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tracker")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete tracker")
	}

	// the device record is gone, so its cached snapshot goes with it
	if s.snapshots != nil {
		s.snapshots.Forget(tracker.Identifier)
	}
	return nil
}

func (s *service) ListInvoices(ctx context.Context, p policy.Principal, params ListParams) ([]InvoiceDTO, error) {
	decision, err := policy.Authorize(p, policy.ActionRead, policy.ResourceInvoice, nil)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list invoices")
	}

	query := listQuery{
		scope:  decision.Scope,
		selfID: p.ID,
		limit:  pkgpagination.NormalizeLimit(params.Limit),
	}
	rows, err := s.repo.ListInvoices(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}

	items := make([]InvoiceDTO, len(rows))
	for i := range rows {
		items[i] = *invoiceFromModel(&rows[i])
	}
	return items, nil
}
