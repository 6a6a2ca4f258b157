package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rastromax/rastromax-backend/internal/policy"
	"github.com/rastromax/rastromax-backend/internal/trackers"
	"github.com/rastromax/rastromax-backend/pkg/db/models"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
)

type trackerDirectory interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.Tracker, error)
}

// PositionDTO is the dashboard position read. AwaitingSignal marks devices
// that have not reported yet; their coordinates are the documented defaults.
type PositionDTO struct {
	Identifier     string     `json:"identifier"`
	Lat            float64    `json:"lat"`
	Lng            float64    `json:"lng"`
	ObservedAt     *time.Time `json:"observed_at,omitempty"`
	AwaitingSignal bool       `json:"awaiting_signal"`
}

// StatusDTO is the dashboard status panel read.
type StatusDTO struct {
	Identifier     string     `json:"identifier"`
	Lat            float64    `json:"lat"`
	Lng            float64    `json:"lng"`
	BatteryPct     *float64   `json:"battery_pct,omitempty"`
	PoweredOn      *bool      `json:"powered_on,omitempty"`
	ObservedAt     *time.Time `json:"observed_at,omitempty"`
	AwaitingSignal bool       `json:"awaiting_signal"`
}

// Service exposes snapshot cache reads gated by tracker ownership.
type Service interface {
	Position(ctx context.Context, p policy.Principal, identifier string) (*PositionDTO, error)
	Status(ctx context.Context, p policy.Principal, identifier string) (*StatusDTO, error)
}

// ServiceParams bundles the service dependencies.
type ServiceParams struct {
	Cache    *Cache
	Trackers trackerDirectory
}

type service struct {
	cache    *Cache
	trackers trackerDirectory
}

// NewService builds the telemetry read service.
func NewService(params ServiceParams) (Service, error) {
	if params.Cache == nil {
		return nil, fmt.Errorf("snapshot cache required")
	}
	if params.Trackers == nil {
		return nil, fmt.Errorf("tracker directory required")
	}
	return &service{cache: params.Cache, trackers: params.Trackers}, nil
}

func (s *service) Position(ctx context.Context, p policy.Principal, identifier string) (*PositionDTO, error) {
	if err := s.authorizeRead(ctx, p, identifier); err != nil {
		return nil, err
	}

	snap, ok := s.cache.Latest(identifier)
	if !ok {
		return &PositionDTO{
			Identifier:     identifier,
			Lat:            DefaultLat,
			Lng:            DefaultLng,
			AwaitingSignal: true,
		}, nil
	}
	observedAt := snap.ObservedAt
	return &PositionDTO{
		Identifier: identifier,
		Lat:        snap.Lat,
		Lng:        snap.Lng,
		ObservedAt: &observedAt,
	}, nil
}

func (s *service) Status(ctx context.Context, p policy.Principal, identifier string) (*StatusDTO, error) {
	if err := s.authorizeRead(ctx, p, identifier); err != nil {
		return nil, err
	}

	snap, ok := s.cache.Latest(identifier)
	if !ok {
		return &StatusDTO{
			Identifier:     identifier,
			Lat:            DefaultLat,
			Lng:            DefaultLng,
			AwaitingSignal: true,
		}, nil
	}
	observedAt := snap.ObservedAt
	return &StatusDTO{
		Identifier: identifier,
		Lat:        snap.Lat,
		Lng:        snap.Lng,
		BatteryPct: snap.BatteryPct,
		PoweredOn:  snap.PoweredOn,
		ObservedAt: &observedAt,
	}, nil
}

func (s *service) authorizeRead(ctx context.Context, p policy.Principal, identifier string) error {
	if !trackers.ValidIdentifier(identifier) {
		return pkgerrors.New(pkgerrors.CodeValidation, "identifier must be 15 numeric digits")
	}

	tracker, err := s.trackers.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tracker not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tracker")
	}

	decision, err := policy.Authorize(p, policy.ActionRead, policy.ResourceTracker, &policy.Target{OwnerID: tracker.OwnerID})
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot read this device")
	}
	return nil
}
