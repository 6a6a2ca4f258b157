// Package policy centralizes every authorization decision for the API.
// Route handlers and services never compare roles directly; they ask this
// package and honor the returned decision.
package policy

import (
	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/pkg/enums"
	apperrors "github.com/rastromax/rastromax-backend/pkg/errors"
)

// Action is the mutation/read verb being authorized.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource names the record types the policy table knows about.
type Resource string

const (
	ResourceUser          Resource = "user"
	ResourceVehicle       Resource = "vehicle"
	ResourceTracker       Resource = "tracker"
	ResourceInvoice       Resource = "invoice"
	ResourceTicket        Resource = "ticket"
	ResourceTicketMessage Resource = "ticket_message"
)

// Principal is the authenticated actor for one request.
type Principal struct {
	ID   uuid.UUID
	Role enums.Role
}

// ReadScope tells repositories how to filter queries for a principal.
type ReadScope string

const (
	// ScopeAll places no filter on the query.
	ScopeAll ReadScope = "all"
	// ScopeOwn restricts to records whose owner is the principal.
	ScopeOwn ReadScope = "own"
	// ScopeAssignedOrUnassigned restricts tickets to those assigned to the
	// principal or not yet assigned at all.
	ScopeAssignedOrUnassigned ReadScope = "assigned_or_unassigned"
	// ScopeNonAdmin restricts user listings to non-admin accounts.
	ScopeNonAdmin ReadScope = "non_admin"
	// ScopeNone means the principal sees nothing for this resource.
	ScopeNone ReadScope = "none"
)

// FieldMask is the set of payload fields a principal may set on a mutation.
// A nil mask on an allowed decision means "no fields" and is never emitted;
// callers should treat membership as the single source of truth.
type FieldMask map[string]struct{}

// Allows reports whether the mask permits writing the named field.
func (m FieldMask) Allows(field string) bool {
	_, ok := m[field]
	return ok
}

func newMask(fields ...string) FieldMask {
	mask := make(FieldMask, len(fields))
	for _, f := range fields {
		mask[f] = struct{}{}
	}
	return mask
}

// Target carries the record attributes a decision may depend on. Only the
// fields relevant to the resource under evaluation need to be set.
type Target struct {
	OwnerID    uuid.UUID
	AssigneeID *uuid.UUID
	Status     enums.TicketStatus
	UserRole   enums.Role
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed   bool
	Scope     ReadScope
	FieldMask FieldMask
}

// Owner fields are intentionally absent from every mask: ownership is fixed
// at creation and no role may rewrite it.
var (
	ticketFullMask         = newMask("title", "description", "priority", "status", "assignee_id", "resolution")
	ticketStaffMask        = newMask("priority", "status", "assignee_id", "resolution")
	ticketClientUpdateMask = newMask("title", "description")
	ticketClientCreateMask = newMask("title", "description", "priority")

	userFullMask  = newMask("name", "email", "phone", "password", "role", "is_active")
	userStaffMask = newMask("name", "email", "phone", "password", "is_active")

	vehicleMask = newMask("plate", "brand", "model", "year", "color")
	trackerMask = newMask("model", "chip_number")
	invoiceMask = newMask("amount", "due_date", "paid_at")

	messageMask = newMask("body")
)

func deny() Decision {
	return Decision{Allowed: false, Scope: ScopeNone}
}

// Authorize evaluates the role/action/resource table. Unknown roles are a
// validation error, never a permissive default. A deny decision comes with
// a nil error; the error return is reserved for malformed input.
func Authorize(p Principal, action Action, resource Resource, target *Target) (Decision, error) {
	if !p.Role.IsValid() {
		return deny(), apperrors.New(apperrors.CodeValidation, "unknown principal role")
	}

	switch p.Role {
	case enums.RoleAdmin:
		return authorizeAdmin(action, resource), nil
	case enums.RoleFuncionario:
		return authorizeStaff(p, action, resource, target), nil
	case enums.RoleClient:
		return authorizeClient(p, action, resource, target), nil
	}

	return deny(), nil
}

func authorizeAdmin(action Action, resource Resource) Decision {
	switch action {
	case ActionRead:
		return Decision{Allowed: true, Scope: ScopeAll}
	case ActionCreate, ActionUpdate:
		return Decision{Allowed: true, Scope: ScopeAll, FieldMask: fullMaskFor(resource)}
	case ActionDelete:
		return Decision{Allowed: true, Scope: ScopeAll}
	}
	return deny()
}

func authorizeStaff(p Principal, action Action, resource Resource, target *Target) Decision {
	switch action {
	case ActionRead:
		switch resource {
		case ResourceTicket, ResourceTicketMessage:
			if target != nil && !staffCanSeeTicket(p, target) {
				return deny()
			}
			return Decision{Allowed: true, Scope: ScopeAssignedOrUnassigned}
		case ResourceUser:
			if target != nil && target.UserRole == enums.RoleAdmin {
				return deny()
			}
			return Decision{Allowed: true, Scope: ScopeNonAdmin}
		case ResourceVehicle, ResourceTracker, ResourceInvoice:
			return Decision{Allowed: true, Scope: ScopeAll}
		}
		return deny()

	case ActionCreate:
		switch resource {
		case ResourceUser:
			// staff provision client accounts only
			if target != nil && target.UserRole != enums.RoleClient {
				return deny()
			}
			return Decision{Allowed: true, FieldMask: userStaffMask}
		case ResourceTicketMessage:
			if target != nil && !staffCanSeeTicket(p, target) {
				return deny()
			}
			return Decision{Allowed: true, FieldMask: messageMask}
		}
		return deny()

	case ActionUpdate:
		switch resource {
		case ResourceTicket:
			if target == nil {
				return deny()
			}
			if !staffCanUpdateTicket(p, target) {
				return deny()
			}
			return Decision{Allowed: true, FieldMask: ticketStaffMask}
		case ResourceUser:
			if target != nil && target.UserRole == enums.RoleAdmin {
				return deny()
			}
			return Decision{Allowed: true, FieldMask: userStaffMask}
		case ResourceVehicle:
			return Decision{Allowed: true, FieldMask: vehicleMask}
		case ResourceTracker:
			return Decision{Allowed: true, FieldMask: trackerMask}
		case ResourceInvoice:
			return Decision{Allowed: true, FieldMask: invoiceMask}
		}
		return deny()

	case ActionDelete:
		return deny()
	}
	return deny()
}

func authorizeClient(p Principal, action Action, resource Resource, target *Target) Decision {
	switch action {
	case ActionRead:
		// for users "own record" means the principal's own account
		if target != nil && target.OwnerID != p.ID {
			return deny()
		}
		return Decision{Allowed: true, Scope: ScopeOwn}

	case ActionCreate:
		switch resource {
		case ResourceTicket:
			return Decision{Allowed: true, FieldMask: ticketClientCreateMask}
		case ResourceTicketMessage:
			if target != nil && target.OwnerID != p.ID {
				return deny()
			}
			return Decision{Allowed: true, FieldMask: messageMask}
		}
		return deny()

	case ActionUpdate:
		if resource != ResourceTicket || target == nil {
			return deny()
		}
		if target.OwnerID != p.ID {
			return deny()
		}
		// clients may only touch a ticket before staff pick it up
		if target.Status != enums.TicketStatusOpen {
			return deny()
		}
		return Decision{Allowed: true, FieldMask: ticketClientUpdateMask}

	case ActionDelete:
		return deny()
	}
	return deny()
}

func staffCanSeeTicket(p Principal, target *Target) bool {
	if target.AssigneeID == nil {
		return true
	}
	return *target.AssigneeID == p.ID
}

func staffCanUpdateTicket(p Principal, target *Target) bool {
	// self-assignment of an untouched ticket
	if target.AssigneeID == nil {
		return target.Status == enums.TicketStatusOpen
	}
	if *target.AssigneeID != p.ID {
		return false
	}
	return target.Status == enums.TicketStatusInProgress ||
		target.Status == enums.TicketStatusResolved
}

func fullMaskFor(resource Resource) FieldMask {
	switch resource {
	case ResourceTicket:
		return ticketFullMask
	case ResourceUser:
		return userFullMask
	case ResourceVehicle:
		return vehicleMask
	case ResourceTracker:
		return trackerMask
	case ResourceInvoice:
		return invoiceMask
	case ResourceTicketMessage:
		return messageMask
	}
	return nil
}
