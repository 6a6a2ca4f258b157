// Package mirror keeps the deprecated legacy document store in sync with the
// primary relational store for users and tickets. Writes are best-effort: a
// mirror failure is logged and counted but never surfaces to the caller, so
// the primary write stays authoritative.
package mirror

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/logger"
	"github.com/rastromax/rastromax-backend/pkg/metrics"
)

const (
	CollectionUsers   = "users"
	CollectionTickets = "tickets"
)

// DocStore is the slice of the redis client the mirror needs.
type DocStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	LegacyDocKey(collection, id string) string
}

// Writer mirrors dual-store records into the legacy document collections.
type Writer struct {
	store   DocStore
	logg    *logger.Logger
	metrics *metrics.MirrorMetrics
}

func NewWriter(store DocStore, logg *logger.Logger, m *metrics.MirrorMetrics) *Writer {
	return &Writer{store: store, logg: logg, metrics: m}
}

// userDoc matches the legacy collection shape, not the relational columns.
type userDoc struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"nome"`
	Phone     *string `json:"telefone,omitempty"`
	Role      string  `json:"tipo"`
	IsActive  bool    `json:"ativo"`
	UpdatedAt string  `json:"atualizado_em"`
}

type ticketDoc struct {
	ID          string  `json:"id"`
	OwnerID     string  `json:"usuario_id"`
	AssigneeID  *string `json:"atendente_id,omitempty"`
	Title       string  `json:"titulo"`
	Description string  `json:"descricao"`
	Status      string  `json:"status"`
	Priority    string  `json:"prioridade"`
	Resolution  *string `json:"resolucao,omitempty"`
	UpdatedAt   string  `json:"atualizado_em"`
}

// MirrorUser upserts the user's legacy document. Never returns an error.
func (w *Writer) MirrorUser(ctx context.Context, user *models.User) {
	if w == nil || w.store == nil || user == nil {
		return
	}
	doc := userDoc{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		Phone:     user.Phone,
		Role:      user.Role.String(),
		IsActive:  user.IsActive,
		UpdatedAt: user.UpdatedAt.UTC().Format(time.RFC3339),
	}
	w.write(ctx, CollectionUsers, user.ID, doc)
}

// MirrorTicket upserts the ticket's legacy document. Never returns an error.
func (w *Writer) MirrorTicket(ctx context.Context, ticket *models.Ticket) {
	if w == nil || w.store == nil || ticket == nil {
		return
	}
	doc := ticketDoc{
		ID:          ticket.ID.String(),
		OwnerID:     ticket.OwnerID.String(),
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status.String(),
		Priority:    ticket.Priority.String(),
		Resolution:  ticket.Resolution,
		UpdatedAt:   ticket.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if ticket.AssigneeID != nil {
		assignee := ticket.AssigneeID.String()
		doc.AssigneeID = &assignee
	}
	w.write(ctx, CollectionTickets, ticket.ID, doc)
}

// RemoveUser deletes the user's legacy document.
func (w *Writer) RemoveUser(ctx context.Context, id uuid.UUID) {
	w.remove(ctx, CollectionUsers, id)
}

// RemoveTicket deletes the ticket's legacy document.
func (w *Writer) RemoveTicket(ctx context.Context, id uuid.UUID) {
	w.remove(ctx, CollectionTickets, id)
}

func (w *Writer) write(ctx context.Context, collection string, id uuid.UUID, doc any) {
	payload, err := json.Marshal(doc)
	if err != nil {
		w.fail(ctx, collection, id, err)
		return
	}
	key := w.store.LegacyDocKey(collection, id.String())
	if err := w.store.Set(ctx, key, payload, 0); err != nil {
		w.fail(ctx, collection, id, err)
		return
	}
	w.metrics.IncSuccess(collection)
}

func (w *Writer) remove(ctx context.Context, collection string, id uuid.UUID) {
	if w == nil || w.store == nil {
		return
	}
	key := w.store.LegacyDocKey(collection, id.String())
	if err := w.store.Del(ctx, key); err != nil {
		w.fail(ctx, collection, id, err)
		return
	}
	w.metrics.IncSuccess(collection)
}

func (w *Writer) fail(ctx context.Context, collection string, id uuid.UUID, err error) {
	w.metrics.IncFailure(collection)
	if w.logg != nil {
		ctx = w.logg.WithFields(ctx, map[string]any{
			"collection": collection,
			"record_id":  id.String(),
		})
		w.logg.Error(ctx, "legacy mirror write failed", err)
	}
}
