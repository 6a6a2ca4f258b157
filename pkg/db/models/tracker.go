package models

import (
	"time"

	"github.com/google/uuid"
)

// Tracker is a GPS hardware unit identified by its 15-digit numeric IMEI,
// linked to a vehicle and the owning client.
type Tracker struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Identifier  string     `gorm:"column:identifier;type:text;not null;uniqueIndex"`
	Model       string     `gorm:"column:model;not null"`
	VehicleID   uuid.UUID  `gorm:"column:vehicle_id;type:uuid;not null;index"`
	OwnerID     uuid.UUID  `gorm:"column:owner_id;type:uuid;not null;index"`
	ChipNumber  *string    `gorm:"column:chip_number"`
	ActivatedAt *time.Time `gorm:"column:activated_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Tracker) TableName() string { return "rastreadores" }
