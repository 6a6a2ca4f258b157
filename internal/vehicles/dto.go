package vehicles

import (
	"time"

	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/pagination"
)

// VehicleDTO is the transport shape for vehicle records.
type VehicleDTO struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Plate     string    `json:"plate"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	Year      int       `json:"year,omitempty"`
	Color     *string   `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func FromModel(v *models.Vehicle) *VehicleDTO {
	if v == nil {
		return nil
	}
	return &VehicleDTO{
		ID:        v.ID,
		OwnerID:   v.OwnerID,
		Plate:     v.Plate,
		Brand:     v.Brand,
		Model:     v.Model,
		Year:      v.Year,
		Color:     v.Color,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// CreateVehicleInput holds the fields required to register a vehicle.
type CreateVehicleInput struct {
	OwnerID uuid.UUID
	Plate   string
	Brand   string
	Model   string
	Year    int
	Color   *string
}

// UpdateVehicleInput uses pointers so absent fields stay untouched. Ownership
// is not part of this shape: owner_id is fixed at creation.
type UpdateVehicleInput struct {
	Plate *string
	Brand *string
	Model *string
	Year  *int
	Color *string
}

// ListParams bundles pagination inputs for vehicle listings.
type ListParams struct {
	pagination.Params
}

// ListResult is one page of vehicles plus the cursor for the next page.
type ListResult struct {
	Items  []VehicleDTO `json:"items"`
	Cursor string       `json:"cursor,omitempty"`
}
