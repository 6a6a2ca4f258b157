package trackers

import (
	"context"
	"errors"

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

// Repository exposes tracker and invoice persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a trackers repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithInvoice provisions the tracker and its first license invoice in
// one transaction; neither row exists unless both writes succeed.
func (r *Repository) CreateWithInvoice(ctx context.Context, tracker *models.Tracker, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tracker).Error; err != nil {
			return err
		}
		invoice.TrackerID = tracker.ID
		return tx.Create(invoice).Error
	})
}

// FindByID loads a tracker by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tracker, error) {
	var tracker models.Tracker
	if err := r.db.WithContext(ctx).First(&tracker, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tracker, nil
}

// FindByIdentifier loads a tracker by its hardware IMEI.
func (r *Repository) FindByIdentifier(ctx context.Context, identifier string) (*models.Tracker, error) {
	var tracker models.Tracker
	if err := r.db.WithContext(ctx).Where("identifier = ?", identifier).First(&tracker).Error; err != nil {
		return nil, err
	}
	return &tracker, nil
}

// IdentifierExists reports whether the IMEI is already provisioned.
func (r *Repository) IdentifierExists(ctx context.Context, identifier string) (bool, error) {
	_, err := r.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns scope-filtered trackers using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Tracker, error) {
	query := r.db.WithContext(ctx).Model(&models.Tracker{})

	switch opts.scope {
	case policy.ScopeAll:
	case policy.ScopeOwn:
		query = query.Where("owner_id = ?", opts.selfID)
	default:
		return nil, nil
	}

	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Tracker
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByOwner returns every tracker belonging to one client.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Tracker, error) {
	var rows []models.Tracker
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update persists the full tracker row.
func (r *Repository) Update(ctx context.Context, tracker *models.Tracker) error {
	return r.db.WithContext(ctx).Save(tracker).Error
}

// Delete removes a tracker row together with its invoices.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Invoice{}, "tracker_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Tracker{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListInvoices returns scope-filtered invoices, newest first.
func (r *Repository) ListInvoices(ctx context.Context, opts listQuery) ([]models.Invoice, error) {
	query := r.db.WithContext(ctx).Model(&models.Invoice{})

	switch opts.scope {
	case policy.ScopeAll:
	case policy.ScopeOwn:
		query = query.Where("owner_id = ?", opts.selfID)
	default:
		return nil, nil
	}

	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Invoice
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
