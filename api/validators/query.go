package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rastromax/rastromax-backend/internal/trackers"
	pkgerrors "github.com/rastromax/rastromax-backend/pkg/errors"
)

// ParseQueryInt reads an integer query parameter, enforcing bounds.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseIMEIQuery reads a 15-digit device identifier from the named query
// parameter.
func ParseIMEIQuery(r *http.Request, key string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "device identifier is required").WithDetails(map[string]any{"field": key})
	}
	if !trackers.ValidIdentifier(raw) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "identifier must be 15 numeric digits").WithDetails(map[string]any{"field": key})
	}
	return raw, nil
}

// ParseUUIDParam parses a path or query UUID value.
func ParseUUIDParam(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
