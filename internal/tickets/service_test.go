package tickets

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rastromax/rastromax-backend/internal/policy"
	"github.com/rastromax/rastromax-backend/pkg/db/models"
	"github.com/rastromax/rastromax-backend/pkg/enums"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
	"github.com/rastromax/rastromax-backend/pkg/logger"
)

type stubTicketsRepo struct {
	created     *models.Ticket
	createErr   error
	findResult  *models.Ticket
	findErr     error
	listRows    []models.Ticket
	lastQuery   listQuery
	updated     *models.Ticket
	updateErr   error
	deletedID   uuid.UUID
	deleteErr   error
	messages    []models.TicketMessage
	newMessage  *models.TicketMessage
	messagesErr error
}

func (s *stubTicketsRepo) Create(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	s.created = ticket
	return ticket, nil
}

func (s *stubTicketsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubTicketsRepo) List(ctx context.Context, opts listQuery) ([]models.Ticket, error) {
	s.lastQuery = opts
	return s.listRows, nil
}

func (s *stubTicketsRepo) Update(ctx context.Context, ticket *models.Ticket) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = ticket
	return nil
}

func (s *stubTicketsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = id
	return nil
}

func (s *stubTicketsRepo) CreateMessage(ctx context.Context, message *models.TicketMessage) (*models.TicketMessage, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	s.newMessage = message
	return message, nil
}

func (s *stubTicketsRepo) ListMessages(ctx context.Context, ticketID uuid.UUID) ([]models.TicketMessage, error) {
	if s.messagesErr != nil {
		return nil, s.messagesErr
	}
	return s.messages, nil
}

type stubTicketMirror struct {
	mirrored  *models.Ticket
	removedID uuid.UUID
}

func (s *stubTicketMirror) MirrorTicket(ctx context.Context, ticket *models.Ticket) { s.mirrored = ticket }
func (s *stubTicketMirror) RemoveTicket(ctx context.Context, id uuid.UUID)         { s.removedID = id }

func newTicketsServiceForTests(repo *stubTicketsRepo) (Service, *stubTicketsRepo, *stubTicketMirror) {
	if repo == nil {
		repo = &stubTicketsRepo{}
	}
	mirror := &stubTicketMirror{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(ServiceParams{Repo: repo, Mirror: mirror, Logger: logg})
	if err != nil {
		panic(err)
	}
	return svc, repo, mirror
}

func strPtr(v string) *string                           { return &v }
func statusPtr(v enums.TicketStatus) *enums.TicketStatus { return &v }
func prioPtr(v enums.TicketPriority) *enums.TicketPriority {
	return &v
}

func TestCreateTicketDefaults(t *testing.T) {
	svc, repo, mirror := newTicketsServiceForTests(nil)
	clientID := uuid.New()

	dto, err := svc.CreateTicket(context.Background(), policy.Principal{ID: clientID, Role: enums.RoleClient}, CreateTicketInput{
		Title:       "Engine noise",
		Description: "Rattling at low rpm",
	})
	if err != nil {
		t.Fatalf("CreateTicket returned error: %v", err)
	}
	if dto.Status != enums.TicketStatusOpen {
		t.Fatalf("new ticket must be open, got %s", dto.Status)
	}
	if dto.AssigneeID != nil {
		t.Fatal("new ticket must be unassigned")
	}
	if dto.Priority != enums.TicketPriorityBaixa {
		t.Fatalf("new ticket priority must default to baixa, got %s", dto.Priority)
	}
	if dto.OwnerID != clientID {
		t.Fatal("client-created ticket must belong to the client")
	}
	if repo.created == nil || mirror.mirrored == nil {
		t.Fatal("ticket must be persisted and mirrored")
	}
}

func TestCreateTicketStaffForbidden(t *testing.T) {
	svc, _, _ := newTicketsServiceForTests(nil)

	_, err := svc.CreateTicket(context.Background(), policy.Principal{ID: uuid.New(), Role: enums.RoleFuncionario}, CreateTicketInput{
		Title:       "x",
		Description: "y",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestAdminAssignmentForcesInProgress(t *testing.T) {
	staffID := uuid.New()
	ticket := &models.Ticket{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Title:       "Sem sinal",
		Description: "Offline",
		Status:      enums.TicketStatusOpen,
		Priority:    enums.TicketPriorityBaixa,
	}
	svc, repo, _ := newTicketsServiceForTests(&stubTicketsRepo{findResult: ticket})

	dto, err := svc.UpdateTicket(context.Background(), policy.Principal{ID: uuid.New(), Role: enums.RoleAdmin}, ticket.ID, UpdateTicketInput{
		AssigneeID: &staffID,
		Priority:   prioPtr(enums.TicketPriorityAlta),
	})
	if err != nil {
		t.Fatalf("UpdateTicket returned error: %v", err)
	}
	if dto.Status != enums.TicketStatusInProgress {
		t.Fatalf("assignment must force in_progress, got %s", dto.Status)
	}
	if dto.AssigneeID == nil || *dto.AssigneeID != staffID {
		t.Fatal("assignee must be set")
	}
	if dto.Priority != enums.TicketPriorityAlta {
		t.Fatalf("priority must change to alta, got %s", dto.Priority)
	}
	if repo.updated == nil {
		t.Fatal("expected persisted update")
	}
}

func TestNonAssigneeStaffCannotResolve(t *testing.T) {
	assignee := uuid.New()
	intruder := uuid.New()
	ticket := &models.Ticket{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		AssigneeID:  &assignee,
		Title:       "Sem sinal",
		Description: "Offline",
		Status:      enums.TicketStatusInProgress,
		Priority:    enums.TicketPriorityMedia,
	}
	svc, _, _ := newTicketsServiceForTests(&stubTicketsRepo{findResult: ticket})

	_, err := svc.UpdateTicket(context.Background(), policy.Principal{ID: intruder, Role: enums.RoleFuncionario}, ticket.ID, UpdateTicketInput{
		Status:     statusPtr(enums.TicketStatusResolved),
		Resolution: strPtr("done"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestAssigneeResolvesWithResolution(t *testing.T) {
	assignee := uuid.New()
	ticket := &models.Ticket{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		AssigneeID:  &assignee,
		Title:       "Sem sinal",
		Description: "Offline",
		Status:      enums.TicketStatusInProgress,
		Priority:    enums.TicketPriorityMedia,
	}
	svc, _, mirror := newTicketsServiceForTests(&stubTicketsRepo{findResult: ticket})

	dto, err := svc.UpdateTicket(context.Background(), policy.Principal{ID: assignee, Role: enums.RoleFuncionario}, ticket.ID, UpdateTicketInput{
		Status:     statusPtr(enums.TicketStatusResolved),
		Resolution: strPtr("antenna replaced"),
	})
	if err != nil {
		t.Fatalf("UpdateTicket returned error: %v", err)
	}
	if dto.Status != enums.TicketStatusResolved {
		t.Fatalf("expected resolved, got %s", dto.Status)
	}
	if dto.Resolution == nil || *dto.Resolution != "antenna replaced" {
		t.Fatal("resolution text must be stored")
	}
	if mirror.mirrored == nil {
		t.Fatal("resolved ticket must be mirrored")
	}
}

func TestResolveWithoutResolutionRejected(t *testing.T) {
	assignee := uuid.New()
	ticket := &models.Ticket{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		AssigneeID:  &assignee,
		Title:       "Sem sinal",
		Description: "Offline",
		Status:      enums.TicketStatusInProgress,
	}
	svc, _, _ := newTicketsServiceForTests(&stubTicketsRepo{findResult: ticket})

	_, err := svc.UpdateTicket(context.Background(), policy.Principal{ID: assignee, Role: enums.RoleFuncionario}, ticket.ID, UpdateTicketInput{
		Status: statusPtr(enums.TicketStatusResolved),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestClientUpdateDropsStatusAndAssignee(t *testing.T) {
	clientID := uuid.New()
	ticket := &models.Ticket{
		ID:          uuid.New(),
		OwnerID:     clientID,
		Title:       "Engine noise",
		Description: "Rattling",
		Status:      enums.TicketStatusOpen,
		Priority:    enums.TicketPriorityBaixa,
	}
	svc, repo, _ := newTicketsServiceForTests(&stubTicketsRepo{findResult: ticket})

	someone := uuid.New()
	dto, err := svc.UpdateTicket(context.Background(), policy.Principal{ID: clientID, Role: enums.RoleClient}, ticket.ID, UpdateTicketInput{
		Title:      strPtr("Engine noise when cold"),
		Status:     statusPtr(enums.TicketStatusResolved),
		AssigneeID: &someone,
	})
	if err != nil {
		t.Fatalf("UpdateTicket returned error: %v", err)
	}
	if dto.Title != "Engine noise when cold" {
		t.Fatalf("title should change, got %q", dto.Title)
	}
	if dto.Status != enums.TicketStatusOpen {
		t.Fatalf("status must be silently dropped for clients, got %s", dto.Status)
	}
	if dto.AssigneeID != nil {
		t.Fatal("assignee must be silently dropped for clients")
	}
	if repo.updated.OwnerID != clientID {
		t.Fatal("owner must never change")
	}
}

func TestClientCannotUpdateAfterPickup(t *testing.T) {
	clientID := uuid.New()
	assignee := uuid.New()
	ticket := &models.Ticket{
		ID:          uuid.New(),
		OwnerID:     clientID,
		AssigneeID:  &assignee,
		Title:       "Engine noise",
		Description: "Rattling",
		Status:      enums.TicketStatusInProgress,
	}
	svc, _, _ := newTicketsServiceForTests(&stubTicketsRepo{findResult: ticket})

	_, err := svc.UpdateTicket(context.Background(), policy.Principal{ID: clientID, Role: enums.RoleClient}, ticket.ID, UpdateTicketInput{
		Title: strPtr("new title"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestStaffSelfAssignOpenTicket(t *testing.T) {
	staffID := uuid.New()
	ticket := &models.Ticket{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Title:       "Sem sinal",
		Description: "Offline",
		Status:      enums.TicketStatusOpen,
	}
	svc, _, _ := newTicketsServiceForTests(&stubTicketsRepo{findResult: ticket})

	dto, err := svc.UpdateTicket(context.Background(), policy.Principal{ID: staffID, Role: enums.RoleFuncionario}, ticket.ID, UpdateTicketInput{
		AssigneeID: &staffID,
	})
	if err != nil {
		t.Fatalf("UpdateTicket returned error: %v", err)
	}
	if dto.Status != enums.TicketStatusInProgress || dto.AssigneeID == nil || *dto.AssigneeID != staffID {
		t.Fatal("self-assignment must set assignee and move to in_progress")
	}
}

func TestStaffCannotAssignColleague(t *testing.T) {
	staffID := uuid.New()
	colleague := uuid.New()
	ticket := &models.Ticket{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Title:       "Sem sinal",
		Description: "Offline",
		Status:      enums.TicketStatusOpen,
	}
	svc, _, _ := newTicketsServiceForTests(&stubTicketsRepo{findResult: ticket})

	_, err := svc.UpdateTicket(context.Background(), policy.Principal{ID: staffID, Role: enums.RoleFuncionario}, ticket.ID, UpdateTicketInput{
		AssigneeID: &colleague,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestAdminUnassignRevertsToOpen(t *testing.T) {
	assignee := uuid.New()
	ticket := &models.Ticket{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		AssigneeID:  &assignee,
		Title:       "Sem sinal",
		Description: "Offline",
		Status:      enums.TicketStatusInProgress,
	}
	svc, _, _ := newTicketsServiceForTests(&stubTicketsRepo{findResult: ticket})

	dto, err := svc.UpdateTicket(context.Background(), policy.Principal{ID: uuid.New(), Role: enums.RoleAdmin}, ticket.ID, UpdateTicketInput{
		ClearAssignee: true,
	})
	if err != nil {
		t.Fatalf("UpdateTicket returned error: %v", err)
	}
	if dto.Status != enums.TicketStatusOpen || dto.AssigneeID != nil {
		t.Fatal("unassignment must clear assignee and revert status to open")
	}
}

func TestDeleteTicketAdminOnly(t *testing.T) {
	id := uuid.New()
	svc, repo, mirror := newTicketsServiceForTests(nil)

	err := svc.DeleteTicket(context.Background(), policy.Principal{ID: uuid.New(), Role: enums.RoleFuncionario}, id)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}

	if err := svc.DeleteTicket(context.Background(), policy.Principal{ID: uuid.New(), Role: enums.RoleAdmin}, id); err != nil {
		t.Fatalf("DeleteTicket returned error: %v", err)
	}
	if repo.deletedID != id || mirror.removedID != id {
		t.Fatal("ticket must be deleted and its legacy document removed")
	}
}

func TestAddMessageRequiresTicketAccess(t *testing.T) {
	owner := uuid.New()
	ticket := &models.Ticket{
		ID:          uuid.New(),
		OwnerID:     owner,
		Title:       "Sem sinal",
		Description: "Offline",
		Status:      enums.TicketStatusOpen,
	}
	svc, repo, _ := newTicketsServiceForTests(&stubTicketsRepo{findResult: ticket})

	stranger := policy.Principal{ID: uuid.New(), Role: enums.RoleClient}
	if _, err := svc.AddMessage(context.Background(), stranger, ticket.ID, "hello"); err == nil {
		t.Fatal("expected forbidden error for stranger")
	}

	ownerPrincipal := policy.Principal{ID: owner, Role: enums.RoleClient}
	msg, err := svc.AddMessage(context.Background(), ownerPrincipal, ticket.ID, "any update?")
	if err != nil {
		t.Fatalf("AddMessage returned error: %v", err)
	}
	if msg.AuthorID != owner || repo.newMessage == nil {
		t.Fatal("message must be stored with the caller as author")
	}
}

func TestListTicketsStaffScope(t *testing.T) {
	svc, repo, _ := newTicketsServiceForTests(nil)
	staffID := uuid.New()

	if _, err := svc.ListTickets(context.Background(), policy.Principal{ID: staffID, Role: enums.RoleFuncionario}, ListParams{}); err != nil {
		t.Fatalf("ListTickets returned error: %v", err)
	}
	if repo.lastQuery.scope != policy.ScopeAssignedOrUnassigned || repo.lastQuery.selfID != staffID {
		t.Fatal("staff listing must cover own-assigned plus unassigned tickets")
	}
}
