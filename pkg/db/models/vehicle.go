package models

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle belongs to exactly one client. OwnerID never changes after creation.
type Vehicle struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	Plate     string    `gorm:"column:plate;type:text;not null;uniqueIndex"`
	Brand     string    `gorm:"column:brand;not null"`
	Model     string    `gorm:"column:model;not null"`
	Year      int       `gorm:"column:year"`
	Color     *string   `gorm:"column:color"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Vehicle) TableName() string { return "vehicles" }
