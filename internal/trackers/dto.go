package trackers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/pagination"
)

// TrackerDTO is the transport shape for tracker records.
type TrackerDTO struct {
	ID          uuid.UUID  `json:"id"`
	Identifier  string     `json:"identifier"`
	Model       string     `json:"model"`
	VehicleID   uuid.UUID  `json:"vehicle_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	ChipNumber  *string    `json:"chip_number,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func FromModel(tr *models.Tracker) *TrackerDTO {
	if tr == nil {
		return nil
	}
	return &TrackerDTO{
		ID:          tr.ID,
		Identifier:  tr.Identifier,
		Model:       tr.Model,
		VehicleID:   tr.VehicleID,
		OwnerID:     tr.OwnerID,
		ChipNumber:  tr.ChipNumber,
		ActivatedAt: tr.ActivatedAt,
		CreatedAt:   tr.CreatedAt,
		UpdatedAt:   tr.UpdatedAt,
	}
}

// InvoiceDTO is the transport shape for license invoices.
type InvoiceDTO struct {
	ID        uuid.UUID       `json:"id"`
	TrackerID uuid.UUID       `json:"tracker_id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   time.Time       `json:"due_date"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func invoiceFromModel(inv *models.Invoice) *InvoiceDTO {
	if inv == nil {
		return nil
	}
	return &InvoiceDTO{
		ID:        inv.ID,
		TrackerID: inv.TrackerID,
		OwnerID:   inv.OwnerID,
		Amount:    inv.Amount,
		DueDate:   inv.DueDate,
		PaidAt:    inv.PaidAt,
		CreatedAt: inv.CreatedAt,
	}
}

// CreateTrackerInput provisions a tracker plus its first license invoice.
type CreateTrackerInput struct {
	Identifier     string
	Model          string
	VehicleID      uuid.UUID
	OwnerID        uuid.UUID
	ChipNumber     *string
	LicenseAmount  decimal.Decimal
	LicenseDueDate time.Time
}

// CreateTrackerResult bundles the provisioned tracker with its invoice.
type CreateTrackerResult struct {
	Tracker *TrackerDTO `json:"tracker"`
	Invoice *InvoiceDTO `json:"invoice"`
}

// UpdateTrackerInput uses pointers so absent fields stay untouched. The
// hardware identifier is immutable once provisioned.
type UpdateTrackerInput struct {
	Model      *string
	ChipNumber *string
}

// ListParams bundles pagination inputs for tracker listings.
type ListParams struct {
	pagination.Params
}

// ListResult is one page of trackers plus the cursor for the next page.
type ListResult struct {
	Items  []TrackerDTO `json:"items"`
	Cursor string       `json:"cursor,omitempty"`
}

// IdentifierCheck is the duplicate-check response shape.
type IdentifierCheck struct {
	Identifier string `json:"identifier"`
	InUse      bool   `json:"in_use"`
}
