package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketMessage is one entry in a ticket's conversation thread.
type TicketMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TicketID  uuid.UUID `gorm:"column:ticket_id;type:uuid;not null;index"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	Body      string    `gorm:"column:body;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (TicketMessage) TableName() string { return "ticket_messages" }
