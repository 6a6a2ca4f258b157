package policy

import (
	"strings"

	"github.com/rastromax/rastromax-backend/pkg/enums"
	apperrors "github.com/rastromax/rastromax-backend/pkg/errors"
)

// TransitionRequest describes one attempted ticket status change.
type TransitionRequest struct {
	Principal  Principal
	From       enums.TicketStatus
	To         enums.TicketStatus
	IsAssignee bool
	Resolution string
}

// ValidateTicketTransition enforces the ticket lifecycle:
//
//	open -> in_progress   assignment, admin/staff
//	in_progress -> resolved   assignee staff (or admin), resolution text required
//	resolved -> in_progress   reopen, admin/staff
//	in_progress -> open   unassignment, admin only
//
// A same-state "transition" is a no-op and always legal; every pair not listed
// above is rejected no matter who asks.
func ValidateTicketTransition(req TransitionRequest) error {
	if !req.From.IsValid() || !req.To.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "unknown ticket status")
	}
	if req.From == req.To {
		return nil
	}

	role := req.Principal.Role
	staffOrAdmin := role == enums.RoleAdmin || role == enums.RoleFuncionario

	switch {
	case req.From == enums.TicketStatusOpen && req.To == enums.TicketStatusInProgress:
		if !staffOrAdmin {
			return apperrors.New(apperrors.CodeForbidden, "only staff may take a ticket")
		}
		return nil

	case req.From == enums.TicketStatusInProgress && req.To == enums.TicketStatusResolved:
		if role == enums.RoleFuncionario && !req.IsAssignee {
			return apperrors.New(apperrors.CodeForbidden, "only the assignee may resolve this ticket")
		}
		if !staffOrAdmin {
			return apperrors.New(apperrors.CodeForbidden, "only staff may resolve a ticket")
		}
		if strings.TrimSpace(req.Resolution) == "" {
			return apperrors.New(apperrors.CodeValidation, "resolution text is required to resolve a ticket")
		}
		return nil

	case req.From == enums.TicketStatusResolved && req.To == enums.TicketStatusInProgress:
		if !staffOrAdmin {
			return apperrors.New(apperrors.CodeForbidden, "only staff may reopen a ticket")
		}
		return nil

	case req.From == enums.TicketStatusInProgress && req.To == enums.TicketStatusOpen:
		if role != enums.RoleAdmin {
			return apperrors.New(apperrors.CodeForbidden, "only an admin may unassign a ticket")
		}
		return nil
	}

	return apperrors.New(apperrors.CodeStateConflict, "ticket status transition not allowed").
		WithDetails(map[string]string{"from": req.From.String(), "to": req.To.String()})
}
