package enums

import "fmt"

// Role represents the closed set of principal roles.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleFuncionario Role = "funcionario"
	RoleClient      Role = "client"
)

var validRoles = []Role{
	RoleAdmin,
	RoleFuncionario,
	RoleClient,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role. Unknown values are a hard error,
// never a permissive default.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
