package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rastromax/rastromax-backend/internal/policy"
	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/enums"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
	"github.com/rastromax/rastromax-backend/pkg/logger"
	pkgpagination "github.com/rastromax/rastromax-backend/pkg/pagination"
)

type ticketsRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	List(ctx context.Context, opts listQuery) ([]models.Ticket, error)
	Update(ctx context.Context, ticket *models.Ticket) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateMessage(ctx context.Context, message *models.TicketMessage) (*models.TicketMessage, error)
	ListMessages(ctx context.Context, ticketID uuid.UUID) ([]models.TicketMessage, error)
}

type mirrorWriter interface {
	MirrorTicket(ctx context.Context, ticket *models.Ticket)
	RemoveTicket(ctx context.Context, id uuid.UUID)
}

// Service exposes the support ticket lifecycle gated by the policy engine.
type Service interface {
	ListTickets(ctx context.Context, p policy.Principal, params ListParams) (*ListResult, error)
	GetTicket(ctx context.Context, p policy.Principal, id uuid.UUID) (*TicketDTO, error)
	CreateTicket(ctx context.Context, p policy.Principal, input CreateTicketInput) (*TicketDTO, error)
	UpdateTicket(ctx context.Context, p policy.Principal, id uuid.UUID, input UpdateTicketInput) (*TicketDTO, error)
	DeleteTicket(ctx context.Context, p policy.Principal, id uuid.UUID) error
	ListMessages(ctx context.Context, p policy.Principal, ticketID uuid.UUID) ([]MessageDTO, error)
	AddMessage(ctx context.Context, p policy.Principal, ticketID uuid.UUID, body string) (*MessageDTO, error)
}

// ServiceParams bundles the service dependencies.
type ServiceParams struct {
	Repo   ticketsRepository
	Mirror mirrorWriter
	Logger *logger.Logger
}

type service struct {
	repo   ticketsRepository
	mirror mirrorWriter
	logg   *logger.Logger
}

// NewService builds the tickets service. The mirror is optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("tickets repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, mirror: params.Mirror, logg: params.Logger}, nil
}

func (s *service) ListTickets(ctx context.Context, p policy.Principal, params ListParams) (*ListResult, error) {
	decision, err := policy.Authorize(p, policy.ActionRead, policy.ResourceTicket, nil)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list tickets")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		scope:  decision.Scope,
		selfID: p.ID,
		limit:  pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tickets")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]TicketDTO, len(rows))
	for i := range rows {
		items[i] = *FromModel(&rows[i])
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) GetTicket(ctx context.Context, p policy.Principal, id uuid.UUID) (*TicketDTO, error) {
	ticket, _, err := s.loadAuthorized(ctx, p, id, policy.ActionRead)
	if err != nil {
		return nil, err
	}
	return FromModel(ticket), nil
}

func (s *service) CreateTicket(ctx context.Context, p policy.Principal, input CreateTicketInput) (*TicketDTO, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}

	decision, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceTicket, nil)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot open tickets")
	}

	ownerID := p.ID
	if input.OwnerID != nil && p.Role == enums.RoleAdmin {
		ownerID = *input.OwnerID
	}

	// every ticket starts open, unassigned, lowest priority
	priority := enums.TicketPriorityBaixa
	if input.Priority != nil && decision.FieldMask.Allows("priority") {
		if !input.Priority.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
		}
		priority = *input.Priority
	}

	ticket := &models.Ticket{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Status:      enums.TicketStatusOpen,
		Priority:    priority,
	}

	created, err := s.repo.Create(ctx, ticket)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ticket")
	}

	if s.mirror != nil {
		s.mirror.MirrorTicket(ctx, created)
	}
	return FromModel(created), nil
}

func (s *service) UpdateTicket(ctx context.Context, p policy.Principal, id uuid.UUID, input UpdateTicketInput) (*TicketDTO, error) {
	ticket, decision, err := s.loadAuthorized(ctx, p, id, policy.ActionUpdate)
	if err != nil {
		return nil, err
	}
	mask := decision.FieldMask

	// fields outside the caller's mask are dropped, not rejected
	if input.Title != nil && mask.Allows("title") {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		ticket.Title = title
	}
	if input.Description != nil && mask.Allows("description") {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description cannot be empty")
		}
		ticket.Description = description
	}
	if input.Priority != nil && mask.Allows("priority") {
		if !input.Priority.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
		}
		ticket.Priority = *input.Priority
	}

	fromStatus := ticket.Status
	newStatus := ticket.Status
	newAssignee := ticket.AssigneeID

	if input.Status != nil && mask.Allows("status") {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
		}
		newStatus = *input.Status
	}

	assigning := input.AssigneeID != nil && mask.Allows("assignee_id")
	if assigning {
		if p.Role == enums.RoleFuncionario && *input.AssigneeID != p.ID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff may only take tickets for themselves")
		}
		newAssignee = input.AssigneeID
		// assignment always moves the ticket into progress
		newStatus = enums.TicketStatusInProgress
	}
	if input.ClearAssignee && mask.Allows("assignee_id") {
		newAssignee = nil
		newStatus = enums.TicketStatusOpen
	}

	resolution := ""
	if ticket.Resolution != nil {
		resolution = *ticket.Resolution
	}
	if input.Resolution != nil && mask.Allows("resolution") {
		resolution = strings.TrimSpace(*input.Resolution)
	}

	if newStatus != fromStatus {
		isAssignee := ticket.AssigneeID != nil && *ticket.AssigneeID == p.ID
		if err := policy.ValidateTicketTransition(policy.TransitionRequest{
			Principal:  p,
			From:       fromStatus,
			To:         newStatus,
			IsAssignee: isAssignee || assigning,
			Resolution: resolution,
		}); err != nil {
			return nil, err
		}
	}

	ticket.Status = newStatus
	ticket.AssigneeID = newAssignee
	if newStatus == enums.TicketStatusResolved && resolution != "" {
		ticket.Resolution = &resolution
	}

	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ticket")
	}

	if s.mirror != nil {
		s.mirror.MirrorTicket(ctx, ticket)
	}
	return FromModel(ticket), nil
}

func (s *service) DeleteTicket(ctx context.Context, p policy.Principal, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}

	decision, err := policy.Authorize(p, policy.ActionDelete, policy.ResourceTicket, nil)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete tickets")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete ticket")
	}

	if s.mirror != nil {
		s.mirror.RemoveTicket(ctx, id)
	}
	return nil
}

func (s *service) ListMessages(ctx context.Context, p policy.Principal, ticketID uuid.UUID) ([]MessageDTO, error) {
	if _, _, err := s.loadAuthorized(ctx, p, ticketID, policy.ActionRead); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListMessages(ctx, ticketID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ticket messages")
	}

	items := make([]MessageDTO, len(rows))
	for i := range rows {
		items[i] = *messageFromModel(&rows[i])
	}
	return items, nil
}

func (s *service) AddMessage(ctx context.Context, p policy.Principal, ticketID uuid.UUID, body string) (*MessageDTO, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}

	ticket, err := s.repo.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup ticket")
	}

	target := &policy.Target{OwnerID: ticket.OwnerID, AssigneeID: ticket.AssigneeID, Status: ticket.Status}
	decision, err := policy.Authorize(p, policy.ActionCreate, policy.ResourceTicketMessage, target)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot post on this ticket")
	}

	message := &models.TicketMessage{
		TicketID: ticket.ID,
		AuthorID: p.ID,
		Body:     body,
	}
	created, err := s.repo.CreateMessage(ctx, message)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ticket message")
	}
	return messageFromModel(created), nil
}

func (s *service) loadAuthorized(ctx context.Context, p policy.Principal, id uuid.UUID, action policy.Action) (*models.Ticket, policy.Decision, error) {
	if id == uuid.Nil {
		return nil, policy.Decision{}, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}

	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, policy.Decision{}, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, policy.Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup ticket")
	}

	target := &policy.Target{OwnerID: ticket.OwnerID, AssigneeID: ticket.AssigneeID, Status: ticket.Status}
	decision, err := policy.Authorize(p, action, policy.ResourceTicket, target)
	if err != nil {
		return nil, policy.Decision{}, err
	}
	if !decision.Allowed {
		return nil, policy.Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "cannot access this ticket")
	}
	return ticket, decision, nil
}
