package enums

import "fmt"

// TicketPriority ranks how urgent a support ticket is.
type TicketPriority string

const (
	TicketPriorityBaixa TicketPriority = "baixa"
	TicketPriorityMedia TicketPriority = "media"
	TicketPriorityAlta  TicketPriority = "alta"
)

var validTicketPriorities = []TicketPriority{
	TicketPriorityBaixa,
	TicketPriorityMedia,
	TicketPriorityAlta,
}

// String implements fmt.Stringer.
func (p TicketPriority) String() string {
	return string(p)
}

// IsValid reports whether the value is a known TicketPriority.
func (p TicketPriority) IsValid() bool {
	for _, candidate := range validTicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseTicketPriority converts raw input into a TicketPriority.
func ParseTicketPriority(value string) (TicketPriority, error) {
	for _, candidate := range validTicketPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket priority %q", value)
}
