package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/api/responses"
	"github.com/rastromax/rastromax-backend/api/validators"
	"github.com/rastromax/rastromax-backend/internal/tickets"
	"github.com/rastromax/rastromax-backend/pkg/enums"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
	"github.com/rastromax/rastromax-backend/pkg/logger"
)

type ticketCreateRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Priority    *string `json:"priority"`
	OwnerID     *string `json:"owner_id"`
}

func (r ticketCreateRequest) toInput() (tickets.CreateTicketInput, error) {
	input := tickets.CreateTicketInput{
		Title:       r.Title,
		Description: r.Description,
	}
	if r.Priority != nil {
		priority := enums.TicketPriority(strings.ToLower(strings.TrimSpace(*r.Priority)))
		if !priority.IsValid() {
			return tickets.CreateTicketInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
		}
		input.Priority = &priority
	}
	if r.OwnerID != nil {
		ownerID, err := validators.ParseUUIDParam(*r.OwnerID, "owner_id")
		if err != nil {
			return tickets.CreateTicketInput{}, err
		}
		input.OwnerID = &ownerID
	}
	return input, nil
}

type ticketUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	AssigneeID  *string `json:"assignee_id"`
	Resolution  *string `json:"resolution"`
}

func (r ticketUpdateRequest) toInput() (tickets.UpdateTicketInput, error) {
	input := tickets.UpdateTicketInput{
		Title:       r.Title,
		Description: r.Description,
		Resolution:  r.Resolution,
	}
	if r.Priority != nil {
		priority := enums.TicketPriority(strings.ToLower(strings.TrimSpace(*r.Priority)))
		if !priority.IsValid() {
			return tickets.UpdateTicketInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
		}
		input.Priority = &priority
	}
	if r.Status != nil {
		status := enums.TicketStatus(strings.ToLower(strings.TrimSpace(*r.Status)))
		if !status.IsValid() {
			return tickets.UpdateTicketInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
		}
		input.Status = &status
	}
	if r.AssigneeID != nil {
		// an explicit null assignee unassigns the ticket
		trimmed := strings.TrimSpace(*r.AssigneeID)
		if trimmed == "" {
			input.ClearAssignee = true
		} else {
			assigneeID, err := uuid.Parse(trimmed)
			if err != nil {
				return tickets.UpdateTicketInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid assignee id")
			}
			input.AssigneeID = &assigneeID
		}
	}
	return input, nil
}

type ticketMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// TicketsList returns tickets filtered by the caller's read scope.
func TicketsList(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListTickets(r.Context(), p, tickets.ListParams{Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TicketsGet returns one ticket.
func TicketsGet(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetTicket(r.Context(), p, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// TicketsCreate opens a new support ticket.
func TicketsCreate(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ticketCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateTicket(r.Context(), p, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// TicketsUpdate applies a role-masked ticket update.
func TicketsUpdate(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ticketUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateTicket(r.Context(), p, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// TicketsDelete removes a ticket and its thread.
func TicketsDelete(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteTicket(r.Context(), p, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// TicketMessagesList returns a ticket's conversation thread.
func TicketMessagesList(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ticketID, err := pathUUID(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListMessages(r.Context(), p, ticketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// TicketMessagesCreate appends one entry to a ticket's thread.
func TicketMessagesCreate(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ticketID, err := pathUUID(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ticketMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.AddMessage(r.Context(), p, ticketID, payload.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}
