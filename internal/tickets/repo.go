package tickets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rastromax/rastromax-backend/internal/policy"
	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/pagination"
)

type listQuery struct {
	scope  policy.ReadScope
	selfID uuid.UUID
	limit  int
	cursor *pagination.Cursor
}

// Repository exposes ticket and message persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a tickets repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new ticket and returns the persisted model.
func (r *Repository) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

// FindByID loads a ticket by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// List returns scope-filtered tickets using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Ticket, error) {
	query := r.db.WithContext(ctx).Model(&models.Ticket{})

	switch opts.scope {
	case policy.ScopeAll:
	case policy.ScopeOwn:
		query = query.Where("owner_id = ?", opts.selfID)
	case policy.ScopeAssignedOrUnassigned:
		query = query.Where("assignee_id = ? OR assignee_id IS NULL", opts.selfID)
	default:
		return nil, nil
	}

	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Ticket
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update persists the full ticket row.
func (r *Repository) Update(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Save(ticket).Error
}

// Delete removes a ticket row together with its thread.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.TicketMessage{}, "ticket_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Ticket{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CreateMessage appends one entry to a ticket's thread.
func (r *Repository) CreateMessage(ctx context.Context, message *models.TicketMessage) (*models.TicketMessage, error) {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// ListMessages returns a ticket's thread in chronological order.
func (r *Repository) ListMessages(ctx context.Context, ticketID uuid.UUID) ([]models.TicketMessage, error) {
	var rows []models.TicketMessage
	if err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
