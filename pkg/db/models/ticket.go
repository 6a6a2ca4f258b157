package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/pkg/enums"
)

// Ticket is a support request opened by a client. OwnerID never changes;
// AssigneeID is nulled (not cascaded) when the assigned funcionario is deleted.
type Ticket struct {
	ID          uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID     uuid.UUID            `gorm:"column:owner_id;type:uuid;not null;index"`
	AssigneeID  *uuid.UUID           `gorm:"column:assignee_id;type:uuid;index"`
	Title       string               `gorm:"column:title;not null"`
	Description string               `gorm:"column:description;not null"`
	Status      enums.TicketStatus   `gorm:"column:status;type:text;not null;default:'open'"`
	Priority    enums.TicketPriority `gorm:"column:priority;type:text;not null;default:'baixa'"`
	Resolution  *string              `gorm:"column:resolution"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Ticket) TableName() string { return "tickets" }
