package tickets

import (
	"time"

	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/enums"
	"github.com/rastromax/rastromax-backend/pkg/pagination"
)

// TicketDTO is the transport shape for support tickets.
type TicketDTO struct {
	ID          uuid.UUID            `json:"id"`
	OwnerID     uuid.UUID            `json:"owner_id"`
	AssigneeID  *uuid.UUID           `json:"assignee_id,omitempty"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      enums.TicketStatus   `json:"status"`
	Priority    enums.TicketPriority `json:"priority"`
	Resolution  *string              `json:"resolution,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func FromModel(t *models.Ticket) *TicketDTO {
	if t == nil {
		return nil
	}
	return &TicketDTO{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		AssigneeID:  t.AssigneeID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Resolution:  t.Resolution,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// MessageDTO is the transport shape for ticket thread entries.
type MessageDTO struct {
	ID        uuid.UUID `json:"id"`
	TicketID  uuid.UUID `json:"ticket_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func messageFromModel(m *models.TicketMessage) *MessageDTO {
	if m == nil {
		return nil
	}
	return &MessageDTO{
		ID:        m.ID,
		TicketID:  m.TicketID,
		AuthorID:  m.AuthorID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

// CreateTicketInput holds the fields a principal may supply for a new ticket.
// Status and assignee are never accepted at creation: every ticket starts
// open and unassigned.
type CreateTicketInput struct {
	Title       string
	Description string
	Priority    *enums.TicketPriority
	// OwnerID is only honored for admins opening a ticket on a client's
	// behalf; everyone else owns what they create.
	OwnerID *uuid.UUID
}

// UpdateTicketInput uses pointers so absent fields stay untouched. Fields the
// caller's role may not write are dropped silently, not rejected.
type UpdateTicketInput struct {
	Title         *string
	Description   *string
	Priority      *enums.TicketPriority
	Status        *enums.TicketStatus
	AssigneeID    *uuid.UUID
	ClearAssignee bool
	Resolution    *string
}

// ListParams bundles pagination inputs for ticket listings.
type ListParams struct {
	pagination.Params
}

// ListResult is one page of tickets plus the cursor for the next page.
type ListResult struct {
	Items  []TicketDTO `json:"items"`
	Cursor string      `json:"cursor,omitempty"`
}
